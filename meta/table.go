// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"sync/atomic"

	"github.com/solidcoredata/tsmeta/codec"
)

// TableKind mirrors codec.TableKind; re-exported so callers never need to
// import codec directly for this.
type TableKind = codec.TableKind

const (
	Normal = codec.Normal
	Super  = codec.Super
	Child  = codec.Child
	Stream = codec.Stream
)

// InvalidSuperTableID is the sentinel super uid used by a Normal/Stream
// table, which has none (spec.md §6, "InvalidSuperTableId").
const InvalidSuperTableID uint64 = 0

// TableID identifies a table for lookups that may only have the uid, the
// tid, or both (spec.md §6, get_table_by_uid and drop_table's table_id).
type TableID struct {
	UID uint64
	TID int32
}

// Table is the per-table entity. Fields not relevant to a given Kind are
// left zero; the matrix in spec.md §3 is authoritative. Mutated only under
// the owning container's write lock (spec.md §5), except for refcount,
// which is atomic and may be touched outside the lock.
type Table struct {
	kind TableKind
	name string
	uid  uint64
	tid  int32 // 0 (unused) for Super, which never occupies the tid array

	// Normal / Super / Stream.
	history *schemaHistory

	// Super only.
	tagSchema *Schema
	tagIndex  *tagIndex

	// Child only.
	superUID  uint64
	superRef  *Table
	tagValues KVRow

	// Stream only.
	streamSQL string

	lastKey  atomic.Int64
	refcount atomic.Int32
}

// newTable constructs a table consistent with the field matrix in spec.md
// §3, grounded on tsdbMeta.c's tsdbNewTable. asSuper distinguishes the
// super-table construction path taken implicitly when a child's create
// message carries no existing super (spec.md §4.5).
func newTable(cfg *TableCfg, asSuper bool) (*Table, error) {
	t := &Table{}
	t.refcount.Store(1)

	switch {
	case asSuper || cfg.Type == Super:
		t.kind = Super
		t.name = cfg.SuperName
		if asSuper {
			// An implicit super built from a Child's create message
			// carries the child's own uid/tid in cfg; the super's
			// identity is cfg.SuperUID, and it never occupies the tid
			// array (tsdbMeta.c sets TABLE_TID(pTable) = -1 on this
			// path).
			t.uid = cfg.SuperUID
			t.tid = 0
		} else {
			t.uid = cfg.UID
			t.tid = cfg.TID
		}
		if cfg.TagSchema == nil {
			return nil, newErr(InvalidCreateMsg, "super table %s missing tag schema", t.name)
		}
		if cfg.Schema == nil {
			return nil, newErr(InvalidCreateMsg, "super table %s missing data schema", t.name)
		}
		ts := *cfg.TagSchema
		t.tagSchema = &ts
		t.tagIndex = newTagIndex()
		dup := *cfg.Schema
		t.history = newSchemaHistory(&dup)
	case cfg.Type == Child:
		t.uid = cfg.UID
		t.tid = cfg.TID
		t.kind = Child
		t.name = cfg.Name
		t.tagValues = cfg.TagValues.Clone()
		t.superUID = cfg.SuperUID
	case cfg.Type == Stream:
		t.uid = cfg.UID
		t.tid = cfg.TID
		t.kind = Stream
		t.name = cfg.Name
		if cfg.Schema == nil {
			return nil, newErr(InvalidCreateMsg, "stream table %s missing schema", t.name)
		}
		dup := *cfg.Schema
		t.history = newSchemaHistory(&dup)
		t.streamSQL = cfg.StreamSQL
	case cfg.Type == Normal:
		t.uid = cfg.UID
		t.tid = cfg.TID
		t.kind = Normal
		t.name = cfg.Name
		if cfg.Schema == nil {
			return nil, newErr(InvalidCreateMsg, "table %s missing schema", t.name)
		}
		dup := *cfg.Schema
		t.history = newSchemaHistory(&dup)
	default:
		return nil, newErr(InvalidCreateMsg, "unknown table type %v", cfg.Type)
	}
	return t, nil
}

func (t *Table) Kind() TableKind { return t.kind }
func (t *Table) Name() string    { return t.name }
func (t *Table) UID() uint64     { return t.uid }
func (t *Table) TID() int32      { return t.tid }

// CurrentSchema returns the newest schema. Child tables dereference their
// super (spec.md Invariant 6: "For Child tables, schema_history is empty;
// schema lookup dereferences super_ref").
func (t *Table) CurrentSchema() *Schema {
	if t.kind == Child {
		if t.superRef == nil {
			return nil
		}
		return t.superRef.CurrentSchema()
	}
	if t.history == nil {
		return nil
	}
	return t.history.current()
}

// SchemaByVersion resolves a specific historical version (spec.md §4.2).
func (t *Table) SchemaByVersion(version int32) (*Schema, bool) {
	if t.kind == Child {
		if t.superRef == nil {
			return nil, false
		}
		return t.superRef.SchemaByVersion(version)
	}
	if t.history == nil {
		return nil, false
	}
	return t.history.byVersion(version)
}

// TagSchema returns the super's tag schema (or nil for non-super kinds).
func (t *Table) TagSchema() *Schema {
	return t.tagSchema
}

// TagValues returns the child's tag value row (or nil for non-child kinds).
func (t *Table) TagValues() KVRow {
	return t.tagValues
}

// SuperRef returns the child's super table (or nil).
func (t *Table) SuperRef() *Table {
	return t.superRef
}

// TagIndexLen returns the number of children currently indexed under this
// super (0 for non-super kinds), used by property tests checking
// Invariant 4: "exactly one entry".
func (t *Table) TagIndexLen() int {
	if t.tagIndex == nil {
		return 0
	}
	return t.tagIndex.len()
}

// StreamSQL returns the stream's continuous-query text (or "" otherwise).
func (t *Table) StreamSQL() string {
	return t.streamSQL
}

// LastKey returns the most recent row timestamp seen, maintained by the
// (out-of-scope) row-write path; carried here so a collaborating memtable
// can update it without reaching into package-private state (SPEC_FULL §7).
func (t *Table) LastKey() int64     { return t.lastKey.Load() }
func (t *Table) SetLastKey(v int64) { t.lastKey.Store(v) }

// RefCount returns the current reference count.
func (t *Table) RefCount() int32 { return t.refcount.Load() }

// ref increments the reference count (spec.md §4.1).
func ref(t *Table) {
	t.refcount.Add(1)
}

// unref decrements the reference count and, on reaching zero, cascades to
// the super (if this is a Child) and frees the table. Rationale (spec.md
// §4.1): "the super must outlive every child referring to it via
// super_ref."
func unref(t *Table) {
	if t == nil {
		return
	}
	if t.refcount.Add(-1) == 0 {
		if t.kind == Child && t.superRef != nil {
			unref(t.superRef)
		}
		freeTable(t)
	}
}

// freeTable releases a table's owned resources. Schemas and tag schemas are
// shared-immutable and need no special teardown; this exists as the named
// hook tsdbMeta.c's tsdbFreeTable occupies, for symmetry and as the place
// any future owned resource (e.g. a CQ handle) would be released.
func freeTable(t *Table) {
	t.superRef = nil
	t.tagIndex = nil
}

// tagIndexKey returns the live encoded bytes of this child's tag[0] value,
// looked up through its super's tag schema rather than cached on the index
// node (spec.md §4.3 rationale: "tag updates that do not touch tag[0]
// avoid index rewrites, and tag[0] values live in one place").
func (t *Table) tagIndexKey() []byte {
	if t.kind != Child || t.superRef == nil || t.superRef.tagSchema == nil {
		return nil
	}
	cols := t.superRef.tagSchema.Columns
	if len(cols) == 0 {
		return nil
	}
	v, _ := t.tagValues.Get(cols[0].ColID)
	return v
}
