// Package errors defines the closed set of outcome codes reported by the
// compiler driver, and the error type that carries one of them together with
// the pipeline stage that failed.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is returned by every failing driver operation.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode
	// Stage names the step that failed, e.g. "configure", "screen",
	// "custom" or a pass name. May be empty.
	Stage string
	// Err is the underlying cause, if any.
	Err error
}

// New returns an Error for code with no cause.
func New(code ErrorCode, stage string) *Error {
	return &Error{Code: code, Stage: stage}
}

// Wrap returns an Error for code caused by err.
func Wrap(code ErrorCode, stage string, err error) *Error {
	return &Error{Code: code, Stage: stage, Err: err}
}

// Errorf returns an Error for code whose cause is built from format.
func Errorf(code ErrorCode, stage, format string, args ...any) *Error {
	return &Error{Code: code, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Code.Description()
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error or a bare ErrorCode with the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *Error:
		return e.Code == t.Code && (t.Stage == "" || t.Stage == e.Stage)
	}
	return false
}

// CodeOf extracts the ErrorCode carried by err. A nil error is Success and an
// error that carries no code is reported as ErrInvalidSource.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	var c ErrorCode
	if stderrors.As(err, &c) {
		return c
	}
	return ErrInvalidSource
}

// StageOf returns the stage recorded on err, or "" if it carries none.
func StageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Stage
	}
	return ""
}
