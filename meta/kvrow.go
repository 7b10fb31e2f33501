// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import "github.com/solidcoredata/tsmeta/codec"

// KVRow is the sparse column-id -> encoded-value tuple used for child tag
// storage (spec.md GLOSSARY: "sparse column-id -> value tuple used for tag
// storage"). Values are already wire-encoded bytes (codec.FieldCoder output
// for fixed types, raw bytes for Binary/NChar); KVRow itself is type-blind,
// matching tsdbMeta.c's SKVRow.
type KVRow map[int16][]byte

// Clone returns an independent copy, used when a child table is constructed
// from a TableCfg (spec.md §4.1: "For Child, tag values are cloned from
// cfg").
func (r KVRow) Clone() KVRow {
	if r == nil {
		return nil
	}
	out := make(KVRow, len(r))
	for k, v := range r {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Get returns the raw encoded bytes stored for colID.
func (r KVRow) Get(colID int16) ([]byte, bool) {
	v, ok := r[colID]
	return v, ok
}

// Set stores the raw encoded bytes for colID, overwriting any prior value.
func (r KVRow) Set(colID int16, value []byte) {
	r[colID] = value
}

func (r KVRow) toWire() map[int16][]byte {
	return map[int16][]byte(r)
}

func kvRowFromWire(m map[int16][]byte) KVRow {
	return KVRow(m)
}

// EncodeTagValue encodes value per the column descriptor's type and returns
// the wire bytes to store in a KVRow, or an error if value does not match
// col.Type.
func EncodeTagValue(col Column, value interface{}) ([]byte, error) {
	if col.Type == codec.Binary || col.Type == codec.NChar {
		switch v := value.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		default:
			return nil, newErr(InvalidAction, "column %d type %s given unsupported value %T", col.ColID, col.Type, value)
		}
	}
	coder, ok := codec.CoderFor(col.Type)
	if !ok {
		return nil, newErr(InvalidAction, "column %d has no fixed coder for type %s", col.ColID, col.Type)
	}
	return coder.Encode(nil, value)
}
