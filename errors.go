// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bdf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("malformed bdf file")
	// ErrChannelNotFound matches every *ChannelNotFoundError.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid operation")
)

// FormatError reports a header field that could not be parsed, or input
// that is shorter than the header declares.
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("error parsing %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ChannelNotFoundError reports channel specifiers that match neither a label
// nor a valid 1-based index.
type ChannelNotFoundError struct {
	Channels []ChannelSpec
}

func (e *ChannelNotFoundError) Error() string {
	names := make([]string, len(e.Channels))
	for i, ch := range e.Channels {
		names[i] = fmt.Sprintf("'%s'", ch)
	}
	return fmt.Sprintf("channel %s is not in bdf file", strings.Join(names, ", "))
}

func (e *ChannelNotFoundError) Is(target error) bool { return target == ErrChannelNotFound }

// ValidationError reports an operation whose arguments are incompatible with
// the recording. The recording is left untouched.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationErrorf(op, format string, args ...any) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
