// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Concurrency errors
	ErrConflict = errors.New("concurrent modification detected")

	// Upstream errors
	ErrUpstream           = errors.New("upstream store error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "levelc", "levela", "escalation"
	Op      string // Operation that failed, e.g., "Create", "StartMonitoring"
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

// NotFound builds a not-found error for the given entity.
func NotFound(domain, op, what string) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, what+" not found")
}

// Validation builds a validation error.
func Validation(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// Conflict builds an optimistic-concurrency error.
func Conflict(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrConflict, message)
}

// Upstream wraps a store or collaborator I/O failure.
func Upstream(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrUpstream, "upstream failure", err)
}

// Catalog errors
var (
	ErrDomainNotFound = NotFound("catalog", "Find", "behavioral domain")
)

// Level A errors
var (
	ErrInterventionNotFound    = NotFound("levela", "Find", "level A intervention")
	ErrInvalidInterventionType = NewDomainError("levela", "Validate", ErrInvalidInput, "invalid intervention type")
	ErrInvalidOutcome          = NewDomainError("levela", "Validate", ErrInvalidInput, "invalid outcome")
	ErrFutureEventTimestamp    = NewDomainError("levela", "Validate", ErrInvalidInput, "event_timestamp cannot be in the future")
)

// Level C errors
var (
	ErrCaseNotFound          = NotFound("levelc", "Find", "level C case")
	ErrCaseClosed            = NewDomainError("levelc", "Mutate", ErrInvalidState, "case is closed")
	ErrCaseVersionConflict   = Conflict("levelc", "Update", "case was modified concurrently; reread and retry")
	ErrPhaseDependency       = NewDomainError("levelc", "Transition", ErrStateTransition, "required phase not completed")
	ErrInvalidTriggerType    = NewDomainError("levelc", "Validate", ErrInvalidInput, "invalid trigger type")
	ErrInvalidCaseType       = NewDomainError("levelc", "Validate", ErrInvalidInput, "invalid case type")
	ErrInvalidAdminResponse  = NewDomainError("levelc", "Validate", ErrInvalidInput, "invalid admin response type")
	ErrInvalidOutcomeStatus  = NewDomainError("levelc", "Validate", ErrInvalidInput, "invalid outcome status")
	ErrInvalidReentryType    = NewDomainError("levelc", "Validate", ErrInvalidInput, "invalid re-entry type")
	ErrMissingAdminResponse  = NewDomainError("levelc", "RecordAdminResponse", ErrEmptyValue, "admin_response_type is required")
	ErrMissingSupportGoal    = NewDomainError("levelc", "CreateReentryPlan", ErrEmptyValue, "support_plan_goal is required")
	ErrMissingReentryDate    = NewDomainError("levelc", "CreateReentryPlan", ErrEmptyValue, "reentry_date is required")
	ErrConsequenceDateOrder  = NewDomainError("levelc", "RecordAdminResponse", ErrValueOutOfRange, "consequence_end_date is before consequence_start_date")
	ErrEmptyCheckInNotes     = NewDomainError("levelc", "LogCheckIn", ErrEmptyValue, "check-in notes are required")
	ErrEmptyStudentID        = NewDomainError("shared", "Validate", ErrEmptyValue, "student_id is required")
	ErrEmptyDomainID         = NewDomainError("shared", "Validate", ErrEmptyValue, "domain_id is required")
	ErrNegativeIgnoredPrompt = NewDomainError("escalation", "Validate", ErrNegativeValue, "ignored_prompts cannot be negative")
)

// Category names returned by Category.
const (
	CategoryNotFound   = "not_found"
	CategoryValidation = "validation"
	CategoryConflict   = "conflict"
	CategoryUpstream   = "upstream"
	CategoryInternal   = "internal"
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
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if a concurrent writer won the race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUpstream checks if the error came from the store or an external collaborator.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// Category classifies an error into the taxonomy shown to callers.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return CategoryNotFound
	case IsConflict(err):
		return CategoryConflict
	case IsValidation(err):
		return CategoryValidation
	case IsUpstream(err):
		return CategoryUpstream
	default:
		return CategoryInternal
	}
}

// IsRetryable reports whether rereading and retrying may succeed.
func IsRetryable(err error) bool {
	return IsConflict(err) || IsUpstream(err)
}
