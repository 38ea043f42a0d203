/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package consoleerr defines the closed set of error kinds used across the
// console. Call sites wrap a sentinel with fmt.Errorf("...: %w", sentinel) so
// errors.Is recovers the kind without a bespoke error type per package.
package consoleerr

import "errors"

var (
	// ErrNotFound marks a missing fixture, cue, track, or profile reference.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks an out-of-range id or malformed address.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIoError marks a file or socket failure.
	ErrIoError = errors.New("io error")
	// ErrDecodeError marks an audio demuxer failure.
	ErrDecodeError = errors.New("decode error")
	// ErrParseError marks a config/JSON parse failure.
	ErrParseError = errors.New("parse error")
	// ErrValidationError marks one or more out-of-range settings fields.
	ErrValidationError = errors.New("validation error")
	// ErrModuleInitError marks a module that failed to initialize.
	ErrModuleInitError = errors.New("module init error")
	// ErrModuleShutdownError marks a module that failed to shut down cleanly.
	ErrModuleShutdownError = errors.New("module shutdown error")
	// ErrBusyResource marks brief contention; callers should retry next tick.
	ErrBusyResource = errors.New("resource busy")
)

// ValidationErrors collects multiple field-level validation failures so a
// single ValidationError event can report all of them at once.
type ValidationErrors struct {
	Fields []string
}

func (e *ValidationErrors) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationError.Error()
	}
	msg := ErrValidationError.Error() + ": "
	for i, f := range e.Fields {
		if i > 0 {
			msg += ", "
		}
		msg += f
	}
	return msg
}

func (e *ValidationErrors) Unwrap() error {
	return ErrValidationError
}

// Add appends a field-level failure message.
func (e *ValidationErrors) Add(field string) {
	e.Fields = append(e.Fields, field)
}

// HasErrors reports whether any field failed validation.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Fields) > 0
}

// ErrOrNil returns e as an error if it has any fields, else nil.
func (e *ValidationErrors) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
