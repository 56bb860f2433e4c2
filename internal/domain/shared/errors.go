// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "jigsaw", "roster", "timer"
	Op      string // Operation that failed, e.g., "AddTopic", "SetPhase"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Jigsaw session errors
var (
	ErrEmptyTitle         = NewDomainError("jigsaw", "AddTopic", ErrEmptyValue, "topic title is required")
	ErrEmptyName          = NewDomainError("jigsaw", "AddStudent", ErrEmptyValue, "student name is required")
	ErrUnknownPhase       = NewDomainError("jigsaw", "SetPhase", ErrInvalidInput, "unknown phase")
	ErrDurationOutOfRange = NewDomainError("jigsaw", "Configure", ErrValueOutOfRange, "duration must be between 1 and 120 minutes")
	ErrResetNotConfirmed  = NewDomainError("jigsaw", "Reset", ErrForbidden, "reset from the teaching phase must be confirmed")
	ErrTopicNotFound      = NewDomainError("jigsaw", "Topic", ErrNotFound, "topic not found")
	ErrStudentNotFound    = NewDomainError("jigsaw", "Student", ErrNotFound, "student not found")
	ErrNotEnoughMembers   = NewDomainError("jigsaw", "GenerateGroups", ErrInvalidState, "at least 2 topics and 4 students are required")
)

// Roster errors
var (
	ErrRosterUnavailable = NewDomainError("roster", "Fetch", ErrServiceUnavailable, "roster source is unavailable")
	ErrRosterClassEmpty  = NewDomainError("roster", "Fetch", ErrEmptyValue, "class name is required")
)

// Timer errors
var (
	ErrTimerAlreadyRunning = NewDomainError("timer", "Start", ErrInvalidState, "countdown already running")
	ErrTimerNotRunning     = NewDomainError("timer", "Stop", ErrInvalidState, "countdown is not running")
	ErrTimerNoDuration     = NewDomainError("timer", "Start", ErrValueOutOfRange, "countdown duration must be positive")
	ErrTimerWrongPhase     = NewDomainError("timer", "Start", ErrInvalidState, "countdown runs only in the expert and teaching phases")
	ErrTimerUnavailable    = NewDomainError("timer", "Start", ErrServiceUnavailable, "countdown is not configured")
)

// API errors
var (
	ErrMissingAPIKey = NewDomainError("api", "Authenticate", ErrUnauthorized, "API key is required")
	ErrInvalidAPIKey = NewDomainError("api", "Authenticate", ErrUnauthorized, "invalid API key")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error reports an operation that the current state forbids.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrForbidden)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
