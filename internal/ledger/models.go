package ledger

import (
	"time"

	"ctrdecrypt/internal/tally"
)

// Run is one recorded invocation of the decryption driver.
type Run struct {
	ID           string
	InputDir     string
	ConvertToCCI bool
	StartedAt    time.Time
	FinishedAt   *time.Time
	Counters     tally.Counters
	Outcome      string
}

// Finished reports whether the run recorded its final tally.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Task is the terminal state of one input file within a run.
type Task struct {
	RunID        string
	Input        string
	Batch        string
	State        string
	Category     string
	TitleID      string
	TitleVersion string
	Output       string
	ErrorMessage string
	Duration     time.Duration
	RecordedAt   time.Time
}
