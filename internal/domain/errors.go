// Package domain defines core types and errors for the usage report service.
package domain

import "fmt"

// BackendUnavailableError indicates the query backend could not be reached at
// submission time. Fatal to the current request.
type BackendUnavailableError struct {
	Message string
}

func (e *BackendUnavailableError) Error() string { return e.Message }

// QueryExecutionError indicates the backend reached a terminal failure or
// cancellation state. Reason carries the backend's stated cause.
type QueryExecutionError struct {
	Reason string
}

func (e *QueryExecutionError) Error() string { return fmt.Sprintf("query failed: %s", e.Reason) }

// QueryTimeoutError indicates a query did not reach a terminal state within
// the configured maximum wait.
type QueryTimeoutError struct {
	Message string
}

func (e *QueryTimeoutError) Error() string { return e.Message }

// NoResourceFoundError indicates table discovery found nothing to query.
type NoResourceFoundError struct {
	Message string
}

func (e *NoResourceFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrBackendUnavailable creates a BackendUnavailableError with a formatted message.
func ErrBackendUnavailable(format string, args ...interface{}) *BackendUnavailableError {
	return &BackendUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrQueryExecution creates a QueryExecutionError carrying the backend's reason.
func ErrQueryExecution(reason string) *QueryExecutionError {
	return &QueryExecutionError{Reason: reason}
}

// ErrQueryTimeout creates a QueryTimeoutError with a formatted message.
func ErrQueryTimeout(format string, args ...interface{}) *QueryTimeoutError {
	return &QueryTimeoutError{Message: fmt.Sprintf(format, args...)}
}

// ErrNoResourceFound creates a NoResourceFoundError with a formatted message.
func ErrNoResourceFound(format string, args ...interface{}) *NoResourceFoundError {
	return &NoResourceFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LikelyCauses lists the misconfigurations that most often explain a failed
// report request. Surfaced alongside propagated errors so the dashboard can
// always render actionable guidance.
func LikelyCauses() []string {
	return []string{
		"AWS credentials are configured",
		"Glue crawler has run successfully",
		"Athena database and table exist",
		"S3 bucket for Athena results is accessible",
	}
}
