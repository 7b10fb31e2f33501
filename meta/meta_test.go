// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/tsmeta/codec"
	"github.com/solidcoredata/tsmeta/meta"
)

type fakeSink struct {
	records [][]byte
}

func (f *fakeSink) AllocateRecord(n int) ([]byte, error) { return make([]byte, n), nil }
func (f *fakeSink) AppendRecord(buf []byte)              { f.records = append(f.records, buf) }

func newDDL(t *testing.T) (*meta.Meta, *meta.DDL, *fakeSink) {
	t.Helper()
	m := meta.NewMeta(64)
	sink := &fakeSink{}
	ddl := meta.NewDDL(m, sink, nil, nil, 1, nil)
	return m, ddl, sink
}

func tagSchema() *meta.Schema {
	return &meta.Schema{Version: 1, Columns: []meta.Column{{ColID: 0, Type: codec.Int32, Bytes: 4}}}
}

func dataSchema(version int32, ncols int) *meta.Schema {
	cols := make([]meta.Column, ncols)
	rowBytes := int16(0)
	for i := range cols {
		cols[i] = meta.Column{ColID: int16(i), Type: codec.Int32, Bytes: 4}
		rowBytes += 4
	}
	return &meta.Schema{Version: version, Columns: cols}
}

// TestTidZeroRejected covers spec.md §8's boundary case: "tid == 0 is
// rejected".
func TestTidZeroRejected(t *testing.T) {
	_, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Normal, UID: 1, TID: 0, Name: "n", Schema: dataSchema(1, 2),
	})
	require.Error(t, err)
	var catErr *meta.CatalogError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, meta.InvalidCreateMsg, catErr.Kind)
}

// TestCreateTableAlreadyExists covers create_table's uid-collision guard.
func TestCreateTableAlreadyExists(t *testing.T) {
	_, ddl, _ := newDDL(t)
	cfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 1, TID: 1, Name: "n", Schema: dataSchema(1, 2)})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(cfg))

	cfg2, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 1, TID: 2, Name: "n2", Schema: dataSchema(1, 2)})
	require.NoError(t, err)
	err = ddl.CreateTable(cfg2)
	require.Error(t, err)
	var catErr *meta.CatalogError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, meta.TableAlreadyExists, catErr.Kind)
}

// TestSchemaHistoryEvictsOldest covers spec.md §8's boundary case:
// "SchemaHistoryMax + 1 updates drop the oldest".
func TestSchemaHistoryEvictsOldest(t *testing.T) {
	m0, ddl, _ := newDDL(t)
	cfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 1, TID: 1, Name: "n", Schema: dataSchema(1, 2)})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(cfg))

	for v := int32(2); v <= meta.SchemaHistoryMax+1; v++ {
		updCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 1, TID: 1, Name: "n", Schema: dataSchema(v, 2)})
		require.NoError(t, err)
		require.NoError(t, ddl.UpdateTable(1, updCfg))
	}

	tbl, ok := meta.GetTableByUID(m0, 1)
	require.True(t, ok)
	schema, ok := meta.GetTableSchema(tbl)
	require.True(t, ok)
	require.Equal(t, meta.SchemaHistoryMax+1, int(schema.Version))

	_, ok = meta.GetTableSchemaByVersion(tbl, 1)
	require.False(t, ok, "oldest version should have been evicted")
}

// TestMaxColsAndRowBytesTrackCurrentSchemas covers spec.md §8 scenario 4.
func TestMaxColsAndRowBytesTrackCurrentSchemas(t *testing.T) {
	m, ddl, _ := newDDL(t)

	nCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 100, TID: 5, Name: "n", Schema: dataSchema(1, 4)})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(nCfg))
	require.Equal(t, 4, m.MaxCols())
	require.Equal(t, 16, m.MaxRowBytes())

	updCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 100, TID: 5, Name: "n", Schema: dataSchema(2, 6)})
	require.NoError(t, err)
	require.NoError(t, ddl.UpdateTable(100, updCfg))
	require.Equal(t, 6, m.MaxCols())
	require.Equal(t, 24, m.MaxRowBytes())

	nPrimeCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{Type: meta.Normal, UID: 101, TID: 6, Name: "n2", Schema: dataSchema(1, 2)})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(nPrimeCfg))

	nTbl, ok := m.GetTableByUID(100)
	require.True(t, ok)
	require.NoError(t, ddl.DropTable(meta.TableID{UID: nTbl.UID()}))

	require.Equal(t, 2, m.MaxCols())
	require.Equal(t, 8, m.MaxRowBytes())
}

// TestRestoreOrganizeOutOfOrder covers spec.md §8 scenario 5: a child
// record replayed before its super still ends up correctly linked once
// organize runs.
func TestRestoreOrganizeOutOfOrder(t *testing.T) {
	_, ddl, sink := newDDL(t)

	superCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Super, UID: 10, SuperName: "s", TagSchema: tagSchema(), Schema: dataSchema(1, 2),
	})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(superCfg))

	childCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Child, UID: 11, TID: 1, Name: "c1", SuperUID: 10, SuperName: "s",
		TagSchema: tagSchema(), Schema: dataSchema(1, 2),
		TagValues: meta.KVRow{0: encodeInt32(t, 1)},
	})
	require.NoError(t, err)
	require.NoError(t, ddl.CreateTable(childCfg))

	// Collect encoded table bodies from the append-only records, in
	// whatever order they were produced, then decode them independent of
	// the first in-memory catalog to simulate a restore replay.
	var bodies [][]byte
	for _, rec := range sink.records {
		data := rec
		for len(data) > 0 {
			a, consumed, err := codec.DecodeAction(data)
			require.NoError(t, err)
			if a.Act == codec.ActUpdateMeta {
				bodies = append(bodies, a.Body)
			}
			data = data[consumed:]
		}
	}
	require.Len(t, bodies, 2)

	// Replay child before super (spec.md §8 scenario 5's ordering).
	childBody, superBody := bodies[0], bodies[1]
	for i, b := range bodies {
		rec, _, err := codec.DecodeTable(b)
		require.NoError(t, err)
		if rec.Kind == codec.Child {
			childBody = bodies[i]
		} else {
			superBody = bodies[i]
		}
	}

	m2 := meta.NewMeta(64)
	require.NoError(t, meta.RestoreTable(m2, childBody))
	require.NoError(t, meta.RestoreTable(m2, superBody))
	require.NoError(t, meta.Organize(m2))

	child, ok := m2.GetTableByUID(11)
	require.True(t, ok)
	require.NotNil(t, child.SuperRef())
	require.Equal(t, uint64(10), child.SuperRef().UID())
	require.NotNil(t, child.SuperRef().TagSchema())
	require.Equal(t, 1, child.SuperRef().TagIndexLen())
}

func encodeInt32(t *testing.T, v int32) []byte {
	t.Helper()
	b, err := meta.EncodeTagValue(meta.Column{ColID: 0, Type: codec.Int32, Bytes: 4}, v)
	require.NoError(t, err)
	return b
}
