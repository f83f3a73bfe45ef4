// Package errors provides centralized error definitions and error handling
// utilities for the markusmoss codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific subsystems:
//   - RemoteServiceError: a collaborator service (MarkUs, MOSS) was
//     unreachable or rejected a request
//   - MissingConfigurationError: a pipeline action was requested without the
//     configuration keys it needs
//   - UnknownGroupError: a case selection references a group that does not
//     exist in the match ledger
//   - CyclicDependencyError: the action registry declares a dependency cycle
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewRemoteServiceError("listing groups", cause).
//		WithStatus(502).WithEndpoint("/api/courses/1/groups")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrRemoteService) { ... }
//
//	var remoteErr *errors.RemoteServiceError
//	if errors.As(err, &remoteErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrRemoteService indicates a collaborator service failure.
	ErrRemoteService = New("remote service failed")
	// ErrMissingConfiguration indicates required configuration is absent.
	ErrMissingConfiguration = New("missing configuration")
	// ErrUnknownGroup indicates a selection references a nonexistent group.
	ErrUnknownGroup = New("unknown group")
	// ErrDependencyCycle indicates a cycle in the action dependency graph.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrActionFailed indicates a pipeline action failed during execution.
	ErrActionFailed = New("action failed")
	// ErrActionBlocked indicates an action was skipped because a dependency failed.
	ErrActionBlocked = New("action blocked by failed dependency")
	// ErrReportNotDownloaded indicates the similarity report has not been mirrored yet.
	ErrReportNotDownloaded = New("similarity report not downloaded")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RemoteServiceError represents a failure talking to a collaborator service
// (the course-management API or the similarity-detection service).
//
// Example:
//
//	err := errors.NewRemoteServiceError("downloading submission files", cause)
//	err = err.WithStatus(503).WithEndpoint("/api/courses/1/groups/9/submission_files")
type RemoteServiceError struct {
	baseError
	Service    string
	Endpoint   string
	StatusCode int
}

// NewRemoteServiceError creates a new RemoteServiceError.
func NewRemoteServiceError(message string, cause error) *RemoteServiceError {
	return &RemoteServiceError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			retryable: true, // remote failures are generally transient
		},
	}
}

// WithService adds the collaborator name to the error context.
func (e *RemoteServiceError) WithService(service string) *RemoteServiceError {
	e.Service = service
	return e
}

// WithEndpoint adds the request endpoint to the error context.
func (e *RemoteServiceError) WithEndpoint(endpoint string) *RemoteServiceError {
	e.Endpoint = endpoint
	return e
}

// WithStatus adds the HTTP status code to the error context.
func (e *RemoteServiceError) WithStatus(code int) *RemoteServiceError {
	e.StatusCode = code
	return e
}

// Error returns the formatted error message.
func (e *RemoteServiceError) Error() string {
	var parts []string
	if e.Service != "" {
		parts = append(parts, fmt.Sprintf("service=%s", e.Service))
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", e.Endpoint))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	prefix := "remote service error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("remote service error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *RemoteServiceError) Is(target error) bool {
	if _, ok := target.(*RemoteServiceError); ok {
		return true
	}
	if errors.Is(target, ErrRemoteService) {
		return true
	}
	return e.baseError.Is(target)
}

// MissingConfigurationError represents a pipeline action requested without
// the configuration keys it requires. All missing keys are reported at once
// rather than one-by-one.
//
// Example:
//
//	err := errors.NewMissingConfigurationError("run-moss", []string{"moss.user_id", "language"})
//	fmt.Println(err) // `action "run-moss" missing configuration keys: moss.user_id, language`
type MissingConfigurationError struct {
	baseError
	Action string
	Keys   []string
}

// NewMissingConfigurationError creates a new MissingConfigurationError.
func NewMissingConfigurationError(action string, keys []string) *MissingConfigurationError {
	return &MissingConfigurationError{
		baseError: baseError{
			message: fmt.Sprintf("action %q missing configuration keys: %s",
				action, strings.Join(keys, ", ")),
		},
		Action: action,
		Keys:   keys,
	}
}

// Error returns the formatted error message.
func (e *MissingConfigurationError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *MissingConfigurationError) Is(target error) bool {
	if _, ok := target.(*MissingConfigurationError); ok {
		return true
	}
	if errors.Is(target, ErrMissingConfiguration) {
		return true
	}
	return e.baseError.Is(target)
}

// UnknownGroupError represents a case selection referencing a group name
// that does not appear in the match ledger or submission store.
type UnknownGroupError struct {
	baseError
	Group string
}

// NewUnknownGroupError creates a new UnknownGroupError.
func NewUnknownGroupError(group string) *UnknownGroupError {
	return &UnknownGroupError{
		baseError: baseError{
			message: fmt.Sprintf("unknown group %q in selection", group),
		},
		Group: group,
	}
}

// Error returns the formatted error message.
func (e *UnknownGroupError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *UnknownGroupError) Is(target error) bool {
	if _, ok := target.(*UnknownGroupError); ok {
		return true
	}
	if errors.Is(target, ErrUnknownGroup) {
		return true
	}
	return e.baseError.Is(target)
}

// CyclicDependencyError represents a cycle in the declared action graph.
// It is raised at registry-construction time, never at runtime.
type CyclicDependencyError struct {
	baseError
	Cycle []string
}

// NewCyclicDependencyError creates a new CyclicDependencyError. The cycle
// slice lists action names along the detected cycle, in order.
func NewCyclicDependencyError(cycle []string) *CyclicDependencyError {
	return &CyclicDependencyError{
		baseError: baseError{
			message: fmt.Sprintf("action dependency cycle: %s", strings.Join(cycle, " -> ")),
		},
		Cycle: cycle,
	}
}

// Error returns the formatted error message.
func (e *CyclicDependencyError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *CyclicDependencyError) Is(target error) bool {
	if _, ok := target.(*CyclicDependencyError); ok {
		return true
	}
	if errors.Is(target, ErrDependencyCycle) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("assignment", "a1")
//	fmt.Println(err) // "assignment 'a1' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message: fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{message: message},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// retryableError is implemented by errors that know whether the operation
// may succeed on retry.
type retryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry (currently: remote service failures).
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re retryableError
	if As(err, &re) {
		return re.IsRetryable()
	}
	return false
}

// IsConfigurationError returns true if the error is caused by operator
// configuration rather than a runtime failure: missing keys, unknown groups
// in a selection, or a cyclic action declaration.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}

	var missing *MissingConfigurationError
	var unknown *UnknownGroupError
	var cyclic *CyclicDependencyError
	var validation *ValidationError

	return As(err, &missing) || As(err, &unknown) ||
		As(err, &cyclic) || As(err, &validation)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "compiling final report")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "downloading files for group %s", group)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
