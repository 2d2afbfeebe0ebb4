package contracts

import "time"

// ExecutionResult pairs the final record of a completed call with the value
// the original callable returned.
type ExecutionResult struct {
	Record      *CallRecord   `json:"record"`
	Result      any           `json:"result"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"duration"`
}

// OutcomeKind tells completed and terminated dispatches apart
type OutcomeKind int

const (
	// OutcomeCompleted means the original callable ran and the after-chain finished
	OutcomeCompleted OutcomeKind = iota
	// OutcomeTerminated means a before-hook stopped the call; the original never ran
	OutcomeTerminated
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of a dispatch
type Outcome struct {
	Kind   OutcomeKind
	Record *CallRecord
	// Result is the original's return value; zero for terminated calls.
	Result any
}

// Completed builds the outcome of a call that reached the original callable
func Completed(record *CallRecord, result any) Outcome {
	return Outcome{Kind: OutcomeCompleted, Record: record, Result: result}
}

// Terminated builds the outcome of a call stopped in the before-chain
func Terminated(record *CallRecord) Outcome {
	return Outcome{Kind: OutcomeTerminated, Record: record}
}

// IsTerminated reports whether the call was stopped before the original ran
func (o Outcome) IsTerminated() bool {
	return o.Kind == OutcomeTerminated
}

// Value returns the result the caller should see: the original's return value
// or the substitute termination result.
func (o Outcome) Value() any {
	if o.Kind == OutcomeTerminated {
		if o.Record == nil {
			return nil
		}
		return o.Record.TerminationResult
	}
	return o.Result
}
