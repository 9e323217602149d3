package expr

import (
	"errors"
	"fmt"
)

// ParseError reports malformed equation text.
type ParseError struct {
	// Offset is the rune offset of the offending token in the
	// NFC-normalized equation.
	Offset int

	// Message is a human-readable description.
	Message string

	// Source is the equation text that failed to parse.
	Source string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// EvalErrorKind categorizes evaluation failures.
type EvalErrorKind string

const (
	// KindUnboundVariable indicates a variable with no binding.
	KindUnboundVariable EvalErrorKind = "UNBOUND_VARIABLE"

	// KindDivisionByZero indicates division by zero, including zero raised
	// to a negative power.
	KindDivisionByZero EvalErrorKind = "DIVISION_BY_ZERO"

	// KindDomain indicates an argument outside a function's domain.
	KindDomain EvalErrorKind = "DOMAIN"

	// KindOverflow indicates a result too large to represent.
	KindOverflow EvalErrorKind = "OVERFLOW"
)

// EvalError reports a failure while evaluating a parsed expression.
type EvalError struct {
	Kind EvalErrorKind

	// Symbol names the unbound variable or the failing function/operator.
	Symbol string

	Message string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s (symbol=%s)", e.Kind, e.Message, e.Symbol)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// EvalKind returns the kind of a wrapped EvalError, or "" if err is not one.
func EvalKind(err error) EvalErrorKind {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

func domainError(symbol, format string, args ...any) *EvalError {
	return &EvalError{Kind: KindDomain, Symbol: symbol, Message: fmt.Sprintf(format, args...)}
}
