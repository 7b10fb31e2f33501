// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import "github.com/solidcoredata/tsmeta/codec"

// GetTableByUID is the package-level form of the external interface named
// in spec.md §6; Meta.GetTableByUID is the method form used internally.
func GetTableByUID(m *Meta, uid uint64) (*Table, bool) {
	return m.GetTableByUID(uid)
}

// GetTableSchema returns t's current schema (spec.md §6).
func GetTableSchema(t *Table) (*Schema, bool) {
	s := t.CurrentSchema()
	return s, s != nil
}

// GetTableSchemaByVersion resolves a specific historical version (spec.md
// §6, §4.2).
func GetTableSchemaByVersion(t *Table, version int32) (*Schema, bool) {
	return t.SchemaByVersion(version)
}

// GetTableTagSchema returns a super's tag schema, or the super's tag
// schema through a child's super_ref (spec.md §6).
func GetTableTagSchema(t *Table) (*Schema, bool) {
	switch t.kind {
	case Super:
		return t.tagSchema, t.tagSchema != nil
	case Child:
		if t.superRef == nil {
			return nil, false
		}
		return t.superRef.tagSchema, t.superRef.tagSchema != nil
	default:
		return nil, false
	}
}

// GetTableTagValue returns the already-encoded bytes stored for colID on a
// child's tag row, asserting the requested (type, width) triple matches
// the super's tag schema column descriptor (SPEC_FULL §7, carried from
// tsdbGetTableTagVal's asymmetric encode path). A column absent from the
// current tag schema (e.g. after a wholesale super tag-schema replacement,
// DESIGN.md Open Question b) returns (nil, false), not an error.
func GetTableTagValue(t *Table, colID int16, typ codec.ColType, nbytes int16) ([]byte, bool) {
	if t.kind != Child || t.superRef == nil || t.superRef.tagSchema == nil {
		return nil, false
	}
	var found *Column
	for i := range t.superRef.tagSchema.Columns {
		if t.superRef.tagSchema.Columns[i].ColID == colID {
			found = &t.superRef.tagSchema.Columns[i]
			break
		}
	}
	if found == nil || found.Type != typ || found.Bytes != nbytes {
		return nil, false
	}
	v, ok := t.tagValues.Get(colID)
	return v, ok
}
