// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import "fmt"

// Kind is the closed taxonomy of error kinds every exported operation
// reports through its return channel (spec.md §7).
type Kind int

const (
	OutOfMemory Kind = iota + 1
	TableAlreadyExists
	InvalidTableId
	InvalidTableType
	InvalidCreateMsg
	InvalidAction
	TagVersionOutOfDate
	SchemaVersionNotFound
	FileCorrupted
	MissingSuperTable
	SystemError
)

func (k Kind) String() string {
	switch k {
	case OutOfMemory:
		return "OutOfMemory"
	case TableAlreadyExists:
		return "TableAlreadyExists"
	case InvalidTableId:
		return "InvalidTableId"
	case InvalidTableType:
		return "InvalidTableType"
	case InvalidCreateMsg:
		return "InvalidCreateMsg"
	case InvalidAction:
		return "InvalidAction"
	case TagVersionOutOfDate:
		return "TagVersionOutOfDate"
	case SchemaVersionNotFound:
		return "SchemaVersionNotFound"
	case FileCorrupted:
		return "FileCorrupted"
	case MissingSuperTable:
		return "MissingSuperTable"
	case SystemError:
		return "SystemError"
	default:
		return "Unknown"
	}
}

// CatalogError is the single error type every exported operation returns.
// It always carries a Kind from the taxonomy above, plus an optional wrapped
// cause for errors.Is/errors.As chains (e.g. an underlying kvstore error
// surfaced as SystemError).
type CatalogError struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *CatalogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("meta: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("meta: %s: %s", e.Kind, e.Msg)
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, meta.ErrKind(TableAlreadyExists)) style checks,
// and also lets two *CatalogError values with the same Kind compare equal.
func (e *CatalogError) Is(target error) bool {
	other, ok := target.(*CatalogError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Kind, format string, args ...interface{}) *CatalogError {
	return &CatalogError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...interface{}) *CatalogError {
	return &CatalogError{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrKind constructs a sentinel *CatalogError suitable for errors.Is checks,
// e.g. errors.Is(err, meta.ErrKind(meta.TableAlreadyExists)).
func ErrKind(k Kind) error {
	return &CatalogError{Kind: k}
}
