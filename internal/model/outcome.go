package model

// Outcome is the validator's verdict for a row before any API call.
//
// Precedence: a processed row is Skip even when its other fields are blank.
type Outcome int

const (
	OutcomeProceed Outcome = iota
	OutcomeSkip
	OutcomeInvalid
	OutcomeBlank
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeSkip:
		return "skip"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeBlank:
		return "blank"
	}
	return "unknown"
}

// Summary counts row outcomes for one run.
type Summary struct {
	Processed int
	Created   int
	DryRun    int
	Failed    int
	Skipped   int
	Invalid   int
	Filtered  int // rows the row filter excluded; left untouched
}
