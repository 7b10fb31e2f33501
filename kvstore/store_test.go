// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/tsmeta/kvstore"
)

func TestOpenReplaysAndOrganizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := kvstore.Open(context.Background(), path, func([]byte) error { return nil }, func() error { return nil })
	require.NoError(t, err)

	require.NoError(t, store.Put(1, []byte("table-one")))
	require.NoError(t, store.Put(2, []byte("table-two")))
	require.NoError(t, store.Close())

	var restored [][]byte
	organized := false
	store2, err := kvstore.Open(context.Background(), path, func(body []byte) error {
		cp := append([]byte(nil), body...)
		restored = append(restored, cp)
		return nil
	}, func() error {
		organized = true
		return nil
	})
	require.NoError(t, err)
	defer store2.Close()

	require.Len(t, restored, 2)
	require.True(t, organized)
}

func TestDeleteRemovesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := kvstore.Open(context.Background(), path, func([]byte) error { return nil }, func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, store.Put(5, []byte("body")))
	require.NoError(t, store.Delete(5))
	require.NoError(t, store.Close())

	count := 0
	store2, err := kvstore.Open(context.Background(), path, func([]byte) error {
		count++
		return nil
	}, func() error { return nil })
	require.NoError(t, err)
	defer store2.Close()
	require.Equal(t, 0, count)
}
