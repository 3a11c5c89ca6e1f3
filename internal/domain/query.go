package domain

// QueryExecutionState represents the lifecycle state of an asynchronous
// analytic query. Transitions are polled, never pushed.
type QueryExecutionState string

// Query execution lifecycle states.
const (
	QueryStateQueued    QueryExecutionState = "QUEUED"
	QueryStateRunning   QueryExecutionState = "RUNNING"
	QueryStateSucceeded QueryExecutionState = "SUCCEEDED"
	QueryStateFailed    QueryExecutionState = "FAILED"
	QueryStateCancelled QueryExecutionState = "CANCELLED"
)

// Terminal reports whether the state admits no further transitions.
func (s QueryExecutionState) Terminal() bool {
	switch s {
	case QueryStateSucceeded, QueryStateFailed, QueryStateCancelled:
		return true
	}
	return false
}

// QueryExecution is a server-tracked asynchronous query with polled status.
// Reason is populated on FAILED executions.
type QueryExecution struct {
	ID     string
	State  QueryExecutionState
	Reason string
}

// ResultRow is an ordered sequence of column values from a completed query
// execution, produced lazily while paging through result pages.
type ResultRow struct {
	Columns []string
	Values  []string
}
