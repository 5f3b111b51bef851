package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrUnknownScope          = errors.New("unknown scope")
	ErrUnsupportedColumnType = errors.New("unsupported column type")
	ErrValidation            = errors.New("validation failed")
	ErrStore                 = errors.New("store error")
)

// ScopeResolutionError is returned when a scope cannot be resolved on a model
// or when a resolved scope fails. The query that produced it must be discarded.
type ScopeResolutionError struct {
	Model string
	Scope string
	Err   error
}

func (e *ScopeResolutionError) Error() string {
	if errors.Is(e.Err, ErrUnknownScope) {
		return fmt.Sprintf("model %s: unknown scope or verb %q", e.Model, e.Scope)
	}
	return fmt.Sprintf("model %s: scope %q: %v", e.Model, e.Scope, e.Err)
}

func (e *ScopeResolutionError) Unwrap() error { return e.Err }

// UnsupportedColumnTypeError is returned when a dialect has no mapping for a
// column's abstract type.
type UnsupportedColumnTypeError struct {
	Dialect string
	Type    ColumnType
}

func (e *UnsupportedColumnTypeError) Error() string {
	if e.Dialect == "" {
		return fmt.Sprintf("unsupported column type %q", e.Type)
	}
	return fmt.Sprintf("dialect %s: unsupported column type %q", e.Dialect, e.Type)
}

func (e *UnsupportedColumnTypeError) Is(target error) bool {
	return target == ErrUnsupportedColumnType
}

// ValidationError carries the offending field key and value.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for field %q: %s", e.Value, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError is an opaque pass-through of a failure reported by the database.
type StoreError struct {
	Op        string
	Statement string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
