// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors provides small wrappers around the standard errors
// package that log non-nil errors with slog, so that call sites can
// handle an error in one line without dropping it silently.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// aliases to the standard library so that callers only import this package.

// New returns an error with the given text.
func New(text string) error { return errors.New(text) }

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Join wraps the given errors into one.
func Join(errs ...error) error { return errors.Join(errs...) }

// Wrap returns an error wrapping err with the given message,
// using fmt.Errorf and %w. It returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Log logs the given error to slog at the Error level, if it is non-nil,
// with the caller's location, and returns it unchanged.
func Log(err error) error {
	if err == nil {
		return nil
	}
	slog.Error(err.Error() + " | " + caller(2))
	return err
}

// Log1 is a version of [Log] for functions returning a value and an
// error, so that callers can write v := errors.Log1(f()).
func Log1[T any](v T, err error) T {
	if err != nil {
		slog.Error(err.Error() + " | " + caller(2))
	}
	return v
}

// Ignore1 returns only the value of a (value, error) pair,
// discarding the error.
func Ignore1[T any](v T, err error) T { return v }

// Must panics if the given error is non-nil. It is for setup code
// where an error means the program cannot meaningfully continue.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// caller returns a file:line string for the caller at the given
// number of stack frames up.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
