package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph store errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeAlgorithm represents graph algorithm engine errors
	ErrorTypeAlgorithm ErrorType = "algorithm"
	// ErrorTypeLookup represents external name lookup errors
	ErrorTypeLookup ErrorType = "lookup"
	// ErrorTypeRequest represents malformed caller input
	ErrorTypeRequest ErrorType = "request"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrNodeNotFound is returned when a referenced user node does not exist
type ErrNodeNotFound struct {
	*BaseError
	UserID int64
}

func NewNodeNotFound(userID int64) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("user with ID %d not found", userID), nil),
		UserID:    userID,
	}
}

// Request Errors

// ErrInvalidRequest is returned for malformed input, detected before any query runs
type ErrInvalidRequest struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidRequest(field, reason string) *ErrInvalidRequest {
	return &ErrInvalidRequest{
		BaseError: NewBaseError(ErrorTypeRequest, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Collaborator Errors

// Collaborator names used in ErrCollaboratorFailure
const (
	CollaboratorGraphStore = "graph store"
	CollaboratorAlgorithm  = "algorithm engine"
	CollaboratorNameLookup = "name lookup"
)

// ErrCollaboratorFailure is returned when the graph store or algorithm engine
// fails. Stage names the step of the operation that failed.
type ErrCollaboratorFailure struct {
	*BaseError
	Stage        string
	Collaborator string
}

func NewCollaboratorFailure(collaborator, stage string, err error) *ErrCollaboratorFailure {
	errType := ErrorTypeGraph
	switch collaborator {
	case CollaboratorAlgorithm:
		errType = ErrorTypeAlgorithm
	case CollaboratorNameLookup:
		errType = ErrorTypeLookup
	}
	return &ErrCollaboratorFailure{
		BaseError:    NewBaseError(errType, fmt.Sprintf("%s failed during %s", collaborator, stage), err),
		Stage:        stage,
		Collaborator: collaborator,
	}
}

// NewGraphFailure is shorthand for a graph store failure
func NewGraphFailure(stage string, err error) error {
	if ctxErr := contextError(stage, err); ctxErr != nil {
		return ctxErr
	}
	return NewCollaboratorFailure(CollaboratorGraphStore, stage, err)
}

// NewComputationFailed is shorthand for an algorithm engine failure
func NewComputationFailed(stage string, err error) error {
	if ctxErr := contextError(stage, err); ctxErr != nil {
		return ctxErr
	}
	return NewCollaboratorFailure(CollaboratorAlgorithm, stage, err)
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
}

func NewContextTimeout(operation string, err error) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if baseErr := baseOf(err); baseErr != nil && baseErr.Type == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err is, or wraps, ErrNodeNotFound
func IsNotFound(err error) bool {
	var target *ErrNodeNotFound
	return stderrors.As(err, &target)
}

// IsInvalidRequest reports whether err is, or wraps, ErrInvalidRequest
func IsInvalidRequest(err error) bool {
	var target *ErrInvalidRequest
	return stderrors.As(err, &target)
}

// IsCollaboratorFailure reports whether err is, or wraps, ErrCollaboratorFailure
func IsCollaboratorFailure(err error) bool {
	var target *ErrCollaboratorFailure
	return stderrors.As(err, &target)
}

// IsTimeout reports whether err is a context timeout, typed or raw
func IsTimeout(err error) bool {
	var target *ErrContextTimeout
	return stderrors.As(err, &target) || stderrors.Is(err, context.DeadlineExceeded)
}

// Stage returns the failing stage of a collaborator or context error, or ""
func Stage(err error) string {
	var collab *ErrCollaboratorFailure
	if stderrors.As(err, &collab) {
		return collab.Stage
	}
	var timeout *ErrContextTimeout
	if stderrors.As(err, &timeout) {
		return timeout.Operation
	}
	var cancelled *ErrContextCancelled
	if stderrors.As(err, &cancelled) {
		return cancelled.Operation
	}
	return ""
}

func baseOf(err error) *BaseError {
	switch e := err.(type) {
	case *BaseError:
		return e
	case *ErrNodeNotFound:
		return e.BaseError
	case *ErrInvalidRequest:
		return e.BaseError
	case *ErrCollaboratorFailure:
		return e.BaseError
	case *ErrContextCancelled:
		return e.BaseError
	case *ErrContextTimeout:
		return e.BaseError
	case *ErrConfigValidationFailed:
		return e.BaseError
	case *ErrConfigMissingRequired:
		return e.BaseError
	}
	return nil
}

// contextError converts a caller cancellation into the typed context errors,
// so a deadline is not reported as a collaborator fault.
func contextError(stage string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewContextTimeout(stage, err)
	case stderrors.Is(err, context.Canceled):
		return NewContextCancelled(stage, err)
	}
	return nil
}
