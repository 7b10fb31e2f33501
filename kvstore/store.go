// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kvstore is the checksummed key-value store consumed by the core
// through the spec's kv_store_open(path, restore_cb, organize_cb, user)
// interface. One bucket holds one record per live table, keyed by uid
// (spec.md §6: "Persisted format"), backed concretely by go.etcd.io/bbolt —
// seen across the retrieval pack's go.mod manifests (e.g. AKJUS-bsc-erigon,
// storj-storj) as the embedded KV of choice for this shape of workload.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	bolt "go.etcd.io/bbolt"
)

var tablesBucket = []byte("tables")

// RestoreFunc decodes and registers one persisted table record. It mirrors
// meta.RestoreTable's signature so kvstore never imports meta; repo.Open
// closes meta.RestoreTable over its Meta and passes it in, keeping the
// dependency one-directional like the codec/meta split.
type RestoreFunc func(body []byte) error

// OrganizeFunc runs once after every persisted record has been replayed.
type OrganizeFunc func() error

// Store is a bbolt-backed implementation of the consumed kv_store_open
// interface (spec.md §6).
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path, replays every
// record in the table bucket through restoreCB in key order, then invokes
// organizeCB once, matching spec.md §4.6's deferred-index-build sequencing.
// Transient file-lock contention at startup is retried with exponential
// backoff (grounded on steveyegge-beads's use of cenkalti/backoff/v4).
func Open(ctx context.Context, path string, restoreCB RestoreFunc, organizeCB OrganizeFunc) (*Store, error) {
	var db *bolt.DB
	open := func() error {
		var err error
		db, err = bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(open, policy); err != nil {
		return nil, fmt.Errorf("kvstore: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tablesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: create bucket: %w", err)
	}

	s := &Store{db: db}
	if err := s.replay(restoreCB, organizeCB); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay(restoreCB RestoreFunc, organizeCB OrganizeFunc) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(tablesBucket)
		return b.ForEach(func(_, body []byte) error {
			return restoreCB(body)
		})
	})
	if err != nil {
		return err
	}
	if organizeCB != nil {
		return organizeCB()
	}
	return nil
}

// Put upserts the persisted body for uid (spec.md §6: one record per live
// table, keyed by uid). Called by the background committer on each
// UpdateMeta it drains from the action log.
func (s *Store) Put(uid uint64, body []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tablesBucket).Put(uidKey(uid), body)
	})
}

// Delete removes the persisted record for uid. Called by the background
// committer on each DropMeta it drains.
func (s *Store) Delete(uid uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tablesBucket).Delete(uidKey(uid))
	})
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func uidKey(uid uint64) []byte {
	return []byte(fmt.Sprintf("%020d", uid))
}
