package errors

import (
	"errors"
	"fmt"
)

// Reference resolution failures. Both abort the run in progress: a raw sales
// tuple pointing at a missing product or branch means the reference data and
// the order history have diverged, and nothing from that run may be persisted.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrBranchNotFound  = errors.New("branch not found")
)

// Job identities for run-scoped errors and locks.
const (
	JobBootstrapAnalysis = "bootstrap_product_analysis"
	JobRefreshAnalysis   = "refresh_product_analysis"
	JobRefreshRevenue    = "refresh_branch_revenue"
)

// RunError is the single error surface a scheduled run presents to its
// trigger. The transaction coordinator guarantees rollback happened before a
// RunError is raised.
type RunError struct {
	Job string
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s run failed: %v", e.Job, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps err with the job identity it belongs to.
func NewRunError(job string, err error) *RunError {
	return &RunError{Job: job, Err: err}
}

const (
	HttpInternalError     = "internal_error"
	HttpInvalidQueryError = "invalid_query"
	HttpNotFoundError     = "not_found"
)

// ErrorResponse is the error response body for query API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
