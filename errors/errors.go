// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package errors centralizes error construction so every subsystem can
// distinguish the kinds named in the replication core's error taxonomy
// without leaking storage- or wire-level error types across package
// boundaries.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// New creates an error with a stack trace attached, mirroring the
// convenience wrapper the rest of the codebase expects.
func New(message string) error {
	return pkgerrors.New(message)
}

// Wrap annotates err with message and a stack trace, unless err is nil.
func Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, message)
}

// WithStack attaches kv to err for structured logging, composing
// multiple annotations without losing the original cause.
func WithStack(err error, kv ...KV) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, k := range kv {
		msg = fmt.Sprintf("%s %s=%v", msg, k.Key, k.Value)
	}
	return pkgerrors.WithMessage(err, msg)
}

// KV is a single structured annotation attached to a wrapped error.
type KV struct {
	Key   string
	Value any
}

// NewKV constructs a single error annotation.
func NewKV(key string, value any) KV {
	return KV{Key: key, Value: value}
}

// Is reports whether err matches target anywhere in its chain.
func Is(err, target error) bool {
	return pkgerrors.Is(err, target)
}

// As finds the first error in err's chain assignable to target.
func As(err error, target any) bool {
	return pkgerrors.As(err, target)
}

// Cause unwraps err to its root cause, matching pkg/errors semantics
// used throughout the teacher codebase's error wrapping style.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}
