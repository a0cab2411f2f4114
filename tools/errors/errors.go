// Package errors provides structured error types for recipe-robot.
//
// Fatal conditions of a run carry a machine-readable Code so the CLI can
// print a targeted message and exit non-zero:
//
//	err := errors.New(errors.ErrCodeUnrecognizedInput, "cannot classify %q", input)
//	if errors.Is(err, errors.ErrCodeUnrecognizedInput) {
//	    // show usage
//	}
//
// Recoverable problems are not errors; they accumulate in a report.Report.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Fatal classification and extraction errors
	ErrCodeUnrecognizedInput  Code = "UNRECOGNIZED_INPUT"
	ErrCodeInvalidApplication Code = "INVALID_APPLICATION"
	ErrCodeInvalidRecipe      Code = "INVALID_RECIPE"

	// Resolution errors
	ErrCodeNoBuildableRecipes Code = "NO_BUILDABLE_RECIPES"
	ErrCodeSearchFailed       Code = "SEARCH_FAILED"

	// Emission and persistence errors
	ErrCodeWriteFailed Code = "WRITE_FAILED"
	ErrCodeInvalidPath Code = "INVALID_PATH"

	// Generic
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if it carries none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Fatal reports whether err is one of the codes that end a run.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnrecognizedInput, ErrCodeInvalidApplication, ErrCodeInvalidRecipe, ErrCodeNoBuildableRecipes:
		return true
	}
	return false
}
