package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Validation errors - malformed user input, reported inline
	ErrInvalidPhoneNumber   = errors.New("invalid phone number")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidRepositoryURL = errors.New("invalid repository URL")
	ErrInvalidQuantity      = errors.New("invalid quantity")

	// Simulated transport failures - recoverable by re-attempting the action
	ErrPaymentCancelled   = errors.New("payment cancelled by user")
	ErrPaymentTimeout     = errors.New("payment timed out")
	ErrNotProvisioned     = errors.New("phone number not provisioned")
	ErrAIUnavailable      = errors.New("AI provider unavailable")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// Streaming errors
	ErrStreamPartiallyCompleted = errors.New("stream partially completed")

	// Storage errors - degrade to in-memory only
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptValue       = errors.New("corrupt stored value")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")

	// Lookup errors
	ErrProductNotFound = errors.New("product not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrJobNotFound     = errors.New("job not found")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// State errors - input not accepted in the current state
	ErrPaymentInFlight = errors.New("payment in progress")
	ErrSendInFlight    = errors.New("a message is already being sent")
	ErrInvalidState    = errors.New("invalid state for operation")

	// Operation errors
	ErrTimeout            = errors.New("operation timeout")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// Error kinds used by StoreError and the HTTP layer
const (
	KindValidation = "validation"
	KindTransport  = "transport"
	KindStorage    = "storage"
	KindState      = "state"
	KindNotFound   = "not_found"
	KindConfig     = "config"
	KindUnknown    = "unknown"
)

// StoreError provides structured error information with context
// It implements the error interface and supports error wrapping
type StoreError struct {
	Op      string // Operation that failed (e.g., "checkout.Pay")
	Kind    string // Error kind (e.g., "validation", "transport")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, kind string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// ValidationError builds a validation StoreError carrying a user-facing message
func ValidationError(op, message string, err error) *StoreError {
	return &StoreError{Op: op, Kind: KindValidation, Message: message, Err: err}
}

// IsValidation checks if an error is caused by malformed user input
func IsValidation(err error) bool {
	var se *StoreError
	if errors.As(err, &se) && se.Kind == KindValidation {
		return true
	}
	return errors.Is(err, ErrInvalidPhoneNumber) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidRepositoryURL) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsTransport checks if an error is a (simulated) remote failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrPaymentCancelled) ||
		errors.Is(err, ErrPaymentTimeout) ||
		errors.Is(err, ErrNotProvisioned) ||
		errors.Is(err, ErrAIUnavailable) ||
		errors.Is(err, ErrCircuitBreakerOpen)
}

// IsStorage checks if an error came from the key-value store
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrCorruptValue) ||
		errors.Is(err, ErrQuotaExceeded)
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrJobNotFound)
}

// IsStateError checks if an error is related to an input refused by the current state
func IsStateError(err error) bool {
	return errors.Is(err, ErrPaymentInFlight) ||
		errors.Is(err, ErrSendInFlight) ||
		errors.Is(err, ErrInvalidState)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsRetryable checks if an error is retryable
// Retryable errors are typically transient network or availability issues
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrPaymentTimeout) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrAIUnavailable)
}

// KindOf classifies err into one of the Kind constants
func KindOf(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Kind != "" {
		return se.Kind
	}
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	case IsNotFound(err):
		return KindNotFound
	case IsStateError(err):
		return KindState
	case IsTransport(err):
		return KindTransport
	case IsStorage(err):
		return KindStorage
	case IsConfigurationError(err):
		return KindConfig
	default:
		return KindUnknown
	}
}
