package pipeline

import (
	"time"

	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/title"
)

// State names a step of the per-file state machine. Terminal states end a task.
type State string

const (
	StateStart            State = "start"
	StateAlreadyDecrypted State = "already_decrypted"
	StateInspectFailed    State = "inspect_failed"
	StateNotEncrypted     State = "not_encrypted"
	StateClassify         State = "classify"
	StateUnsupported      State = "unsupported"
	StateDecrypt          State = "decrypt"
	StateReassemble       State = "reassemble"
	StateBuild            State = "build"
	StateVerify           State = "verify"
	StateSucceeded        State = "succeeded"
	StateBuildFailed      State = "build_failed"
	StateSkipped          State = "skipped"
	// StateFaulted marks a task that returned an error or panicked.
	StateFaulted State = "faulted"
)

// Terminal reports whether the state ends a task.
func (s State) Terminal() bool {
	switch s {
	case StateAlreadyDecrypted, StateInspectFailed, StateNotEncrypted, StateUnsupported,
		StateSucceeded, StateBuildFailed, StateSkipped, StateFaulted:
		return true
	default:
		return false
	}
}

// Batch groups tasks of one kind. Batches run one after another.
type Batch string

const (
	Batch3DS     Batch = "3ds"
	BatchCIA     Batch = "cia"
	BatchConvert Batch = "convert"
)

// Fault returns the counters for a task that failed unexpectedly: one error
// in the batch's category.
func (b Batch) Fault() tally.Counters {
	switch b {
	case Batch3DS:
		return tally.Counters{DSErr: 1}
	case BatchCIA:
		return tally.Counters{CIAErr: 1}
	case BatchConvert:
		return tally.Counters{CCIErr: 1}
	default:
		return tally.Counters{}
	}
}

// Result is the outcome of one task.
type Result struct {
	Input    string
	Batch    Batch
	State    State
	Category title.Category
	Record   title.Record
	Output   string
	Counters tally.Counters
	Err      error
	Duration time.Duration
}
