// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

// ColType is the wire primitive type of a column or tag value.
type ColType uint8

const (
	Bool ColType = iota + 1
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Binary // variable length, length-prefixed
	NChar  // variable length UTF-8, length-prefixed
)

// FixedWidth returns the on-disk byte width of fixed-width types, and 0 for
// the variable-length types (Binary, NChar), whose width is carried
// separately as a per-column max-length hint.
func (t ColType) FixedWidth() int16 {
	switch t {
	case Bool, Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (t ColType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Binary:
		return "binary"
	case NChar:
		return "nchar"
	default:
		return "unknown"
	}
}

// TableKind mirrors meta.TableKind without importing the meta package, so
// codec stays a dependency-free leaf (spec: "Schema registry", "Tag-value
// encoding" are leaves).
type TableKind uint8

const (
	Normal TableKind = iota + 1
	Super
	Child
	Stream
)

// Act identifies the action kind framed around a table record in the
// action log.
type Act uint8

const (
	ActUpdateMeta Act = 1
	ActDropMeta   Act = 2
)
