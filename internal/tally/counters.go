package tally

import "fmt"

// Counters are the per-task and per-run result counts.
type Counters struct {
	Total    int
	Final    int
	Count3DS int
	CountCIA int
	DSErr    int
	CIAErr   int
	CCIErr   int

	// ConvertToCCI is configuration carried alongside the counts. Combine
	// keeps the receiver's value.
	ConvertToCCI bool
}

// Combine returns the field-wise sum of c and other. The result keeps
// c.ConvertToCCI, so the run-level base decides the flag.
func (c Counters) Combine(other Counters) Counters {
	return Counters{
		Total:        c.Total + other.Total,
		Final:        c.Final + other.Final,
		Count3DS:     c.Count3DS + other.Count3DS,
		CountCIA:     c.CountCIA + other.CountCIA,
		DSErr:        c.DSErr + other.DSErr,
		CIAErr:       c.CIAErr + other.CIAErr,
		CCIErr:       c.CCIErr + other.CCIErr,
		ConvertToCCI: c.ConvertToCCI,
	}
}

// Errors is the sum of every error counter.
func (c Counters) Errors() int {
	return c.DSErr + c.CIAErr + c.CCIErr
}

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeNone     Outcome = "none"
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
)

// Outcome reports none when nothing finished, complete when every input
// finished, and partial otherwise.
func (c Counters) Outcome() Outcome {
	switch {
	case c.Final == 0:
		return OutcomeNone
	case c.Final == c.Total:
		return OutcomeComplete
	default:
		return OutcomePartial
	}
}

func (c Counters) String() string {
	return fmt.Sprintf("total=%d final=%d 3ds=%d cia=%d ds_err=%d cia_err=%d cci_err=%d",
		c.Total, c.Final, c.Count3DS, c.CountCIA, c.DSErr, c.CIAErr, c.CCIErr)
}
