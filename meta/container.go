// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import "sync"

// Meta owns the dense tid-indexed array, the super-table list, and the
// uid->table map, guarded by a single reader/writer lock (spec.md §4.4,
// §5). Grounded on tsdbMeta.c's STsdbMeta.
type Meta struct {
	mu sync.RWMutex

	maxTables int32
	tables    []*Table // index 0 reserved/unused; 1..maxTables-1 valid
	superList []*Table
	uidMap    map[uint64]*Table
	nameIndex map[string]uint64 // best-effort, log/CLI only (SPEC_FULL §7)

	tableCount  int
	maxCols     int
	maxRowBytes int
}

// NewMeta constructs an empty catalog for one repo with room for tids in
// [1, maxTables).
func NewMeta(maxTables int32) *Meta {
	return &Meta{
		maxTables: maxTables,
		tables:    make([]*Table, maxTables),
		uidMap:    make(map[uint64]*Table),
		nameIndex: make(map[string]uint64),
	}
}

// Lock/Unlock/RLock/RUnlock let callers (ddl.go) hold the write lock across
// an entire multi-step DDL mutation, including its undo path (spec.md §5).
func (m *Meta) Lock()    { m.mu.Lock() }
func (m *Meta) Unlock()  { m.mu.Unlock() }
func (m *Meta) RLock()   { m.mu.RLock() }
func (m *Meta) RUnlock() { m.mu.RUnlock() }

// MaxTables returns the configured tid ceiling.
func (m *Meta) MaxTables() int32 { return m.maxTables }

// GetTableByUID resolves a table by its global identity (spec.md §6).
func (m *Meta) GetTableByUID(uid uint64) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.uidMap[uid]
	return t, ok
}

// GetTableByName is a best-effort, log/CLI-only lookup (SPEC_FULL §7); uid
// remains the sole identity used by DDL and invariants.
func (m *Meta) GetTableByName(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.nameIndex[name]
	if !ok {
		return nil, false
	}
	t, ok := m.uidMap[uid]
	return t, ok
}

// GetTableByTID resolves a non-super table by its dense index.
func (m *Meta) GetTableByTID(tid int32) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getByTIDLocked(tid)
}

func (m *Meta) getByTIDLocked(tid int32) (*Table, bool) {
	if tid <= 0 || int(tid) >= len(m.tables) {
		return nil, false
	}
	t := m.tables[tid]
	return t, t != nil
}

// MaxCols and MaxRowBytes are the maxima across every non-child table's
// current schema (spec.md Invariant 8).
func (m *Meta) MaxCols() int     { m.mu.RLock(); defer m.mu.RUnlock(); return m.maxCols }
func (m *Meta) MaxRowBytes() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.maxRowBytes }

// TableCount returns the number of non-super tables currently registered.
func (m *Meta) TableCount() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.tableCount }

// SuperList returns a snapshot of the registered super tables.
func (m *Meta) SuperList() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Table, len(m.superList))
	copy(out, m.superList)
	return out
}

// AllTables returns a snapshot of every live non-super table (used by the
// CLI and by tests; not a spec.md operation itself).
func (m *Meta) AllTables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Table, 0, m.tableCount)
	for _, t := range m.tables {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// addTableLocked registers t. Caller must hold the write lock. withIndex
// controls whether a Child is spliced into its super's tag index now
// (normal DDL) or deferred (restore_table; spec.md §4.6 "the tag index is
// deferred").
func (m *Meta) addTableLocked(t *Table, withIndex bool) error {
	var addedToSuperList, addedToTables, addedToRefIndex bool
	undo := func() {
		if addedToRefIndex {
			t.superRef.tagIndex.remove(t)
			unref(t.superRef)
			t.superRef = nil
		}
		if addedToSuperList {
			m.removeFromSuperListLocked(t)
		}
		if addedToTables {
			m.tables[t.tid] = nil
			m.tableCount--
		}
	}

	switch t.kind {
	case Super:
		m.superList = append(m.superList, t)
		addedToSuperList = true
	default:
		if t.tid <= 0 || int(t.tid) >= len(m.tables) {
			return newErr(InvalidTableId, "tid %d out of range (0, %d)", t.tid, len(m.tables))
		}
		if existing := m.tables[t.tid]; existing != nil && existing != t {
			undo()
			return newErr(TableAlreadyExists, "tid %d already occupied by uid %d", t.tid, existing.uid)
		}
		m.tables[t.tid] = t
		m.tableCount++
		addedToTables = true
	}

	if t.kind == Child && withIndex {
		super, ok := m.uidMap[t.superUID]
		if !ok || super.kind != Super {
			undo()
			return newErr(MissingSuperTable, "super uid %d not registered for child %q", t.superUID, t.name)
		}
		t.superRef = super
		super.tagIndex.insert(t)
		ref(super)
		addedToRefIndex = true
	}

	m.uidMap[t.uid] = t
	if t.name != "" {
		m.nameIndex[t.name] = t.uid
	}

	if t.kind != Child {
		m.growMaximaLocked(t)
	}
	return nil
}

// AddTable is the locking convenience wrapper around addTableLocked, used
// by restore (withIndex=false, single-threaded, but still lock-correct).
func (m *Meta) AddTable(t *Table, withIndex bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addTableLocked(t, withIndex)
}

// removeTableLocked unregisters t. Caller must hold the write lock when
// lock is handled by the public RemoveTable wrapper; this variant assumes
// it already is held (used by ddl.go across a whole cascading drop).
func (m *Meta) removeTableLocked(t *Table, rmFromIndex bool) {
	switch t.kind {
	case Super:
		m.removeFromSuperListLocked(t)
	default:
		if t.tid > 0 && int(t.tid) < len(m.tables) && m.tables[t.tid] == t {
			m.tables[t.tid] = nil
			m.tableCount--
		}
	}

	if t.kind == Child && rmFromIndex && t.superRef != nil {
		t.superRef.tagIndex.remove(t)
	}

	delete(m.uidMap, t.uid)
	if t.name != "" && m.nameIndex[t.name] == t.uid {
		delete(m.nameIndex, t.name)
	}

	contributedMax := t.kind != Child
	unref(t)
	if contributedMax {
		m.rescanMaximaLocked()
	}
}

// RemoveTable matches spec.md §4.4's signature exactly:
// remove_table(t, rm_from_index, lock).
func (m *Meta) RemoveTable(t *Table, rmFromIndex bool, lock bool) {
	if lock {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	m.removeTableLocked(t, rmFromIndex)
}

func (m *Meta) removeFromSuperListLocked(t *Table) {
	for i, s := range m.superList {
		if s == t {
			m.superList = append(m.superList[:i], m.superList[i+1:]...)
			return
		}
	}
}

func (m *Meta) growMaximaLocked(t *Table) {
	s := t.CurrentSchema()
	if s == nil {
		return
	}
	if n := s.NumCols(); n > m.maxCols {
		m.maxCols = n
	}
	if b := s.RowBytes(); b > m.maxRowBytes {
		m.maxRowBytes = b
	}
}

// rescanMaximaLocked rescans every non-child table after a removal that may
// have held the current maximum (spec.md §4.4: "if the removed table
// contributed the current maximum for cols or row-bytes, rescans all
// tables to restore those maxima").
func (m *Meta) rescanMaximaLocked() {
	maxCols, maxRowBytes := 0, 0
	scan := func(t *Table) {
		s := t.CurrentSchema()
		if s == nil {
			return
		}
		if n := s.NumCols(); n > maxCols {
			maxCols = n
		}
		if b := s.RowBytes(); b > maxRowBytes {
			maxRowBytes = b
		}
	}
	for _, t := range m.tables {
		if t != nil && t.kind != Child {
			scan(t)
		}
	}
	for _, t := range m.superList {
		scan(t)
	}
	m.maxCols = maxCols
	m.maxRowBytes = maxRowBytes
}

// Organize rebuilds every super's tag index after a full restore replay,
// resolving each Child's super_ref and splicing it in (spec.md §4.6
// "organize()"). This is the callback a kvstore.Store invokes once after
// replaying every persisted record.
func (m *Meta) Organize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t == nil || t.kind != Child {
			continue
		}
		super, ok := m.uidMap[t.superUID]
		if !ok || super.kind != Super {
			return newErr(MissingSuperTable, "organize: super uid %d missing for child %q", t.superUID, t.name)
		}
		t.superRef = super
		super.tagIndex.insert(t)
		ref(super)
	}
	return nil
}
