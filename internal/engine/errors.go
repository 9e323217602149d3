package engine

import (
	"errors"
	"fmt"
	"strings"
)

// RejectionCode categorizes a rejected submission.
type RejectionCode string

const (
	// ErrCodeInstrumentNotFound indicates the instrument id is unknown.
	ErrCodeInstrumentNotFound RejectionCode = "INSTRUMENT_NOT_FOUND"

	// ErrCodeInstrumentInactive indicates the instrument is deactivated.
	ErrCodeInstrumentInactive RejectionCode = "INSTRUMENT_INACTIVE"

	// ErrCodeMissingInput indicates a required input was not submitted.
	ErrCodeMissingInput RejectionCode = "MISSING_INPUT"

	// ErrCodeUnknownInput indicates a submitted acronym is not an input of
	// the instrument.
	ErrCodeUnknownInput RejectionCode = "UNKNOWN_INPUT"

	// ErrCodeDuplicateInput indicates an acronym was submitted twice.
	ErrCodeDuplicateInput RejectionCode = "DUPLICATE_INPUT"

	// ErrCodeInvalidValue indicates a submitted value is NaN or infinite, or
	// the measurement time is missing.
	ErrCodeInvalidValue RejectionCode = "INVALID_VALUE"

	// ErrCodeUnresolvedSymbol indicates an equation references a symbol that
	// cannot be bound.
	ErrCodeUnresolvedSymbol RejectionCode = "UNRESOLVED_SYMBOL"
)

// RejectionError reports a submission that was refused before anything was
// persisted.
type RejectionError struct {
	// Code identifies the rejection category.
	Code RejectionCode

	// Message is a human-readable description.
	Message string

	// InstrumentID identifies the target instrument.
	InstrumentID int64

	// Acronyms lists the offending acronyms, sorted, when the rejection is
	// about specific inputs or symbols.
	Acronyms []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if len(e.Acronyms) > 0 {
		return fmt.Sprintf("%s: %s [%s] (instrument=%d)", e.Code, e.Message, strings.Join(e.Acronyms, ", "), e.InstrumentID)
	}
	return fmt.Sprintf("%s: %s (instrument=%d)", e.Code, e.Message, e.InstrumentID)
}

// Unwrap returns the underlying cause.
func (e *RejectionError) Unwrap() error {
	return e.Err
}

// IsRejection returns true if err is a RejectionError.
// Uses errors.As to handle wrapped errors.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// Code returns the rejection code of err, or "" if err is not a
// RejectionError.
func Code(err error) RejectionCode {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func reject(code RejectionCode, instrumentID int64, acronyms []string, format string, args ...any) *RejectionError {
	return &RejectionError{
		Code:         code,
		Message:      fmt.Sprintf(format, args...),
		InstrumentID: instrumentID,
		Acronyms:     acronyms,
	}
}
