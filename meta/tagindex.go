// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"bytes"

	"github.com/google/btree"
)

// SuperTableSkipLevel is the named tuning constant spec.md §6 carries over
// from the original skip-list implementation ("SuperTableSkipLevel = 5").
// The btree-backed tag index (DESIGN.md) repurposes it as the tree's
// branching degree rather than dropping it silently.
const SuperTableSkipLevel = 5

// DefaultTagIndexColumn is the always-indexed column position within a
// super's tag schema (spec.md §6, Invariant 7: "The designated tag column
// is always tag_schema[0]").
const DefaultTagIndexColumn = 0

// tagIndexEntry is one node's payload: a back-pointer to the child. The key
// itself is never stored — every comparison calls back into the child's
// live tag value (spec.md §4.3), so a tag update that doesn't touch tag[0]
// never needs an index rewrite.
type tagIndexEntry struct {
	child *Table
}

func tagIndexLess(a, b *tagIndexEntry) bool {
	ak, bk := a.child.tagIndexKey(), b.child.tagIndexKey()
	if c := bytes.Compare(ak, bk); c != 0 {
		return c < 0
	}
	// Duplicate tag[0] values are permitted (spec.md §4.3); break ties by
	// uid so every live child occupies a distinct tree position.
	return a.child.uid < b.child.uid
}

// tagIndex is the per-super ordered multimap over the live value of
// tag[0], one instance per Super table (spec.md §3).
type tagIndex struct {
	tree *btree.BTreeG[*tagIndexEntry]
}

func newTagIndex() *tagIndex {
	return &tagIndex{tree: btree.NewG(SuperTableSkipLevel, tagIndexLess)}
}

// insert splices child into the index at its current tag[0] position
// (spec.md §4.3, "Insert"). The caller (Meta.addTableLocked /
// Meta.Organize) is responsible for the accompanying super refcount bump.
func (idx *tagIndex) insert(child *Table) {
	idx.tree.ReplaceOrInsert(&tagIndexEntry{child: child})
}

// remove splices child out of the index at its *current* tag[0] value.
// Must be called before the child's tag_values are mutated when the
// mutation touches tag[0] (spec.md §4.3, "Update tag value of tag[0]").
func (idx *tagIndex) remove(child *Table) bool {
	_, ok := idx.tree.Delete(&tagIndexEntry{child: child})
	return ok
}

// ascend walks the index in ascending tag[0] order, calling fn for each
// child; stops early if fn returns false.
func (idx *tagIndex) ascend(fn func(child *Table) bool) {
	idx.tree.Ascend(func(e *tagIndexEntry) bool {
		return fn(e.child)
	})
}

// len returns the number of children currently indexed.
func (idx *tagIndex) len() int {
	return idx.tree.Len()
}

// children returns every indexed child in ascending tag[0] order.
func (idx *tagIndex) children() []*Table {
	out := make([]*Table, 0, idx.tree.Len())
	idx.ascend(func(t *Table) bool {
		out = append(out, t)
		return true
	})
	return out
}

// countFor returns how many index entries currently resolve to child
// (Invariant 4 expects exactly one). No caller in this module uses it yet.
func (idx *tagIndex) countFor(child *Table) int {
	n := 0
	idx.ascend(func(t *Table) bool {
		if t == child {
			n++
		}
		return true
	})
	return n
}
