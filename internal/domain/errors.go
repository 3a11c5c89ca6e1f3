// Package domain defines core types, interfaces, and errors for the
// health information orchestration service.
package domain

import "fmt"

// ConfigurationError indicates a component was used before it was fully wired.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// StorageError indicates an I/O failure while converting or persisting a bundle.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error { return e.Err }

// TriggerError indicates an import job submission could not be started or failed.
type TriggerError struct {
	Message string
	Err     error
}

func (e *TriggerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TriggerError) Unwrap() error { return e.Err }

// RequestError indicates an HTTP response outside the accepted status set.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// QueryError indicates a query execution reached a failed or cancelled state.
type QueryError struct {
	State  QueryExecutionState
	Reason string
}

func (e *QueryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("query execution %s: %s", e.State, e.Reason)
	}
	return fmt.Sprintf("query execution %s", e.State)
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrStorage creates a StorageError wrapping an underlying cause.
func ErrStorage(err error, format string, args ...interface{}) *StorageError {
	return &StorageError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrTrigger creates a TriggerError wrapping an underlying cause.
func ErrTrigger(err error, format string, args ...interface{}) *TriggerError {
	return &TriggerError{Message: fmt.Sprintf(format, args...), Err: err}
}
