package models

// Mode selects the direction of a batch item's pipeline run.
type Mode string

const (
	ModeEncrypt Mode = "encrypt"
	ModeDecrypt Mode = "decrypt"
)

// ItemState tracks the lifecycle of a batch item.
type ItemState int

const (
	StatePending ItemState = iota
	StateInProgress
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInProgress:
		return "in_progress"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a terminal one.
func (s ItemState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// BatchItem is one queue entry for the batch coordinator.
type BatchItem struct {
	// ID tags every event emitted for this item so callers can
	// reconcile outcomes without relying on arrival order.
	ID string

	Mode       Mode
	SourcePath string

	// OutputDir is where the result is written. The output filename
	// is derived from the source (encrypt) or the container header
	// (decrypt).
	OutputDir string
}
