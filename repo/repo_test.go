// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/tsmeta/codec"
	"github.com/solidcoredata/tsmeta/meta"
	"github.com/solidcoredata/tsmeta/repo"
)

func openTestRepo(t *testing.T) *repo.Repo {
	t.Helper()
	cfg := repo.DefaultConfig()
	cfg.RootDir = t.TempDir()
	cfg.TsdbID = 7

	r, err := repo.Open(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })
	return r
}

func tagSchema() *meta.Schema {
	return &meta.Schema{Version: 1, Columns: []meta.Column{
		{ColID: 0, Type: codec.Int32, Bytes: 4},
	}}
}

func dataSchema() *meta.Schema {
	return &meta.Schema{Version: 1, Columns: []meta.Column{
		{ColID: 0, Type: codec.Int64, Bytes: 8},
		{ColID: 1, Type: codec.Float64, Bytes: 8},
	}}
}

// TestCreateChildrenAndIndexOrder covers spec.md §8 scenario 1.
func TestCreateChildrenAndIndexOrder(t *testing.T) {
	r := openTestRepo(t)

	superCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Super, UID: 10, SuperName: "cpu", TagSchema: tagSchema(), Schema: dataSchema(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, superCfg))

	c1, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Child, UID: 11, TID: 1, Name: "host1", SuperUID: 10, SuperName: "cpu",
		TagSchema: tagSchema(), Schema: dataSchema(),
		TagValues: meta.KVRow{0: encodeInt32(t, 42)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, c1))

	c2, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Child, UID: 12, TID: 2, Name: "host2", SuperUID: 10, SuperName: "cpu",
		TagSchema: tagSchema(), Schema: dataSchema(),
		TagValues: meta.KVRow{0: encodeInt32(t, 7)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, c2))

	super, ok := meta.GetTableByUID(r.Meta(), 10)
	require.True(t, ok)
	require.Equal(t, meta.Super, super.Kind())
	require.Len(t, r.Meta().SuperList(), 1)

	t1, ok := r.Meta().GetTableByTID(1)
	require.True(t, ok)
	require.Equal(t, uint64(11), t1.UID())
	t2, ok := r.Meta().GetTableByTID(2)
	require.True(t, ok)
	require.Equal(t, uint64(12), t2.UID())
}

// TestDropSuperCascades covers spec.md §8 scenario 3.
func TestDropSuperCascades(t *testing.T) {
	r := openTestRepo(t)

	superCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Super, UID: 20, SuperName: "mem", TagSchema: tagSchema(), Schema: dataSchema(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, superCfg))

	childCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Child, UID: 21, TID: 1, Name: "host1", SuperUID: 20, SuperName: "mem",
		TagSchema: tagSchema(), Schema: dataSchema(), TagValues: meta.KVRow{0: encodeInt32(t, 1)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, childCfg))

	require.NoError(t, repo.DropTable(r, meta.TableID{UID: 20}))

	_, ok := meta.GetTableByUID(r.Meta(), 20)
	require.False(t, ok)
	_, ok = meta.GetTableByUID(r.Meta(), 21)
	require.False(t, ok)
	require.Empty(t, r.Meta().SuperList())
}

// TestUpdateTagValueReordersIndex covers spec.md §8 scenario 2.
func TestUpdateTagValueReordersIndex(t *testing.T) {
	r := openTestRepo(t)

	superCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Super, UID: 30, SuperName: "disk", TagSchema: tagSchema(), Schema: dataSchema(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, superCfg))

	childCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Child, UID: 31, TID: 1, Name: "host1", SuperUID: 30, SuperName: "disk",
		TagSchema: tagSchema(), Schema: dataSchema(), TagValues: meta.KVRow{0: encodeInt32(t, 42)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, childCfg))

	err = repo.UpdateTagValue(context.Background(), r, &meta.TagValueUpdate{
		UID: 31, TID: 1, ColID: 0, Value: encodeInt32(t, 3), TagVersion: 1,
	})
	require.NoError(t, err)

	child, ok := meta.GetTableByUID(r.Meta(), 31)
	require.True(t, ok)
	v, ok := child.TagValues().Get(0)
	require.True(t, ok)
	require.Equal(t, encodeInt32(t, 3), v)
}

// TestUpdateTagValueOnNormalTableFails covers spec.md §8's boundary case.
func TestUpdateTagValueOnNormalTableFails(t *testing.T) {
	r := openTestRepo(t)

	normalCfg, err := meta.NewTableCfg(&meta.CreateTableMessage{
		Type: meta.Normal, UID: 40, TID: 1, Name: "n1", Schema: dataSchema(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(r, normalCfg))

	err = repo.UpdateTagValue(context.Background(), r, &meta.TagValueUpdate{UID: 40, TID: 1, ColID: 0})
	require.Error(t, err)
	var catErr *meta.CatalogError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, meta.InvalidAction, catErr.Kind)
}

func encodeInt32(t *testing.T, v int32) []byte {
	t.Helper()
	b, err := meta.EncodeTagValue(meta.Column{ColID: 0, Type: codec.Int32, Bytes: 4}, v)
	require.NoError(t, err)
	return b
}
