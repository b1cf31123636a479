// Package errors provides the typed error kinds surfaced by the question pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEmptyQuestion ErrorCode = "EMPTY_QUESTION"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"

	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeStoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
)

// ValidationError rejects a request before any external call. Its message is
// user-facing and surfaced verbatim.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ValidationError[%s]: %s", e.Code, e.Message)
}

// CapabilityError wraps a failure of one of the three external capabilities
// (embedding, store, generation). Message is safe to show a user; Cause holds
// the full error for the audit log and is never surfaced.
type CapabilityError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *CapabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("CapabilityError[%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("CapabilityError[%s]: %s", e.Code, e.Message)
}

func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

func NewEmptyQuestionError() *ValidationError {
	return &ValidationError{
		Code:    ErrCodeEmptyQuestion,
		Message: "The question must not be empty.",
	}
}

func NewInvalidInputError(message string) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}

func NewEmbeddingFailedError(err error) *CapabilityError {
	return &CapabilityError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "The question could not be processed right now. Please try again later.",
		Cause:     err,
		Timestamp: time.Now().UTC(),
	}
}

func NewStoreQueryFailedError(err error) *CapabilityError {
	return &CapabilityError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Reference data is temporarily unavailable. Please try again later.",
		Cause:     err,
		Timestamp: time.Now().UTC(),
	}
}

func NewGenerationFailedError(err error) *CapabilityError {
	return &CapabilityError{
		Code:      ErrCodeGenerationFailed,
		Message:   "The answer could not be generated right now. Please try again later.",
		Cause:     err,
		Timestamp: time.Now().UTC(),
	}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCapability reports whether err is (or wraps) a CapabilityError.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// UserMessage extracts the user-facing message for a pipeline error. Unknown
// error types map to a generic message so internals never leak.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "An unexpected error occurred. Please try again later."
}

// CodeOf returns the error code for metrics labels, or "UNKNOWN".
func CodeOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return "UNKNOWN"
}
