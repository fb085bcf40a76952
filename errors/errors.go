// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package errors wraps pkg/errors and includes some custom features such as
// error codes.
package errors

import (
	"github.com/pkg/errors"
)

// Code is an error code which can be used to check against a given error. For
// example, see the Is() method.
type Code string

const (
	ErrUncoded Code = "Uncoded"

	// ErrSchema covers unknown query names and unresolved
	// table/index/field/join references.
	ErrSchema Code = "SchemaError"

	// ErrDecode covers truncated or malformed wire buffers and field
	// positions which could not be resolved.
	ErrDecode Code = "DecodeError"

	// ErrOverflow is returned when a row or a result does not fit a 32-bit
	// length.
	ErrOverflow Code = "OverflowError"

	// ErrBackend covers connection failures and missing store records.
	ErrBackend Code = "BackendError"

	// ErrUnsupportedQuery is returned when a backend is asked to run a query
	// shape it does not implement.
	ErrUnsupportedQuery Code = "UnsupportedQuery"
)

func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

// WithCode attaches code to err. The wrapped error stays reachable through
// Unwrap(), so the standard library errors.Is/As still match it.
func WithCode(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
		cause:   err,
	})
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Is is a fork of the Is() method from `pkg/errors` which takes as its target
// an error Code instead of an error.
func Is(err error, target Code) bool {
	match := codedError{
		Code: target,
	}
	return errors.Is(err, match)
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// ErrUncoded.
func CodeOf(err error) Code {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrUncoded
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, fmt string, args ...interface{}) error {
	return errors.Wrapf(err, fmt, args...)
}

// codedError is the fundamental type used by this package to provide coded
// errors.
type codedError struct {
	Code    Code
	Message string

	cause error
}

func (ce codedError) Error() string {
	if ce.cause != nil {
		return ce.Message + ": " + ce.cause.Error()
	}
	return ce.Message
}

func (ce codedError) Is(err error) bool {
	if e, ok := err.(codedError); ok && ce.Code == e.Code {
		return true
	}
	return false
}

func (ce codedError) Unwrap() error { return ce.cause }
