// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"sort"

	"github.com/solidcoredata/tsmeta/codec"
)

// SchemaHistoryMax bounds how many schema versions a non-child table keeps
// in memory at once (spec.md §6, "Named constants"). The action log still
// records every version ever committed, so full history survives restart
// even once memory eviction has dropped an old version (spec.md §4.2, §4.6).
const SchemaHistoryMax = 8

// Column is one immutable column descriptor: id, primitive type, byte
// width. Grounded on dca/ts/writer.go's Col struct, narrowed to the fields
// spec.md §3 actually names.
type Column struct {
	ColID int16
	Type  codec.ColType
	Bytes int16
}

// Schema is an immutable, versioned, ordered set of column descriptors.
// Equality is structural (spec.md §3: "Schemas are treated as immutable
// values; equality is structural").
type Schema struct {
	Version int32
	Columns []Column
}

// Equal reports whether two schemas are structurally identical.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Version != o.Version || len(s.Columns) != len(o.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// NumCols returns the column count.
func (s *Schema) NumCols() int {
	if s == nil {
		return 0
	}
	return len(s.Columns)
}

// RowBytes returns the sum of fixed/variable byte widths of every column,
// the value max_row_bytes tracks across tables (spec.md §3, Invariant 8).
func (s *Schema) RowBytes() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, c := range s.Columns {
		total += int(c.Bytes)
	}
	return total
}

func (s *Schema) toRecord() codec.SchemaRecord {
	rec := codec.SchemaRecord{Version: s.Version, Columns: make([]codec.ColumnRecord, len(s.Columns))}
	for i, c := range s.Columns {
		rec.Columns[i] = codec.ColumnRecord{ColID: c.ColID, Type: c.Type, Bytes: c.Bytes}
	}
	return rec
}

func schemaFromRecord(rec *codec.SchemaRecord) *Schema {
	s := &Schema{Version: rec.Version, Columns: make([]Column, len(rec.Columns))}
	for i, c := range rec.Columns {
		s.Columns[i] = Column{ColID: c.ColID, Type: c.Type, Bytes: c.Bytes}
	}
	return s
}

// schemaHistory is the bounded, version-ascending list a Normal/Super/
// Stream table keeps (spec.md Invariant 5). Child tables never populate
// this; they dereference super_ref instead (Invariant 6).
type schemaHistory struct {
	versions []*Schema // strictly ascending by Version; newest last
}

func newSchemaHistory(initial *Schema) *schemaHistory {
	return &schemaHistory{versions: []*Schema{initial}}
}

// current returns the newest schema, or nil if history is empty.
func (h *schemaHistory) current() *Schema {
	if len(h.versions) == 0 {
		return nil
	}
	return h.versions[len(h.versions)-1]
}

// byVersion binary searches for an exact version match.
func (h *schemaHistory) byVersion(version int32) (*Schema, bool) {
	i := sort.Search(len(h.versions), func(i int) bool {
		return h.versions[i].Version >= version
	})
	if i < len(h.versions) && h.versions[i].Version == version {
		return h.versions[i], true
	}
	return nil, false
}

// append adds a newer schema, evicting the oldest entry once the history is
// at capacity (spec.md Invariant 5, §4.2: "if the history is full, the
// oldest entry is evicted and the newest appended").
func (h *schemaHistory) append(s *Schema) {
	h.versions = append(h.versions, s)
	if len(h.versions) > SchemaHistoryMax {
		h.versions = h.versions[len(h.versions)-SchemaHistoryMax:]
	}
}

func (h *schemaHistory) len() int {
	return len(h.versions)
}

func (h *schemaHistory) all() []*Schema {
	return h.versions
}
