// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package actionlog is the write-ahead action log collaborator the core
// consumes through meta.ActionSink: a growable arena that buffers
// UpdateMeta/DropMeta records appended under the meta write lock, drained
// by a background committer into the checksummed key-value store.
//
// Grounded on dca/ts/writer.go's Writer.chunkBuffer — a single *bytes.Buffer
// reused across Flush calls — generalized here into an append-only record
// list a concurrent committer goroutine can drain independently of the
// DDL path doing the appending.
package actionlog

import (
	"sync"

	"github.com/solidcoredata/tsmeta/codec"
)

// Record is one committed action-log entry: a sequence number plus the
// already-framed bytes codec.EncodeAction produced (possibly several
// records concatenated together for one DDL transaction, per spec.md
// §4.5's "both or neither" requirement).
type Record struct {
	Seq int64
	Buf []byte
}

// Log is the in-memory arena backing meta.ActionSink. Reservation
// (AllocateRecord) is a plain allocation; commit (AppendRecord) is the
// only operation requiring the mutex, since DDL already serializes calls
// to it under the meta write lock but the background committer drains
// concurrently.
type Log struct {
	mu      sync.Mutex
	nextSeq int64
	pending []Record
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// AllocateRecord reserves n bytes for a record the caller fills in before
// passing it to AppendRecord (spec.md §6, alloc_bytes(repo, n)).
func (l *Log) AllocateRecord(n int) ([]byte, error) {
	return make([]byte, n), nil
}

// AppendRecord commits buf as the next record in sequence order (spec.md
// §6, append_action). Callers must hold the meta write lock across the
// whole AllocateRecord/fill/AppendRecord sequence so log order matches
// in-memory commit order (spec.md §5).
func (l *Log) AppendRecord(buf []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSeq++
	l.pending = append(l.pending, Record{Seq: l.nextSeq, Buf: buf})
}

// Drain removes and returns every record appended since the last Drain, in
// sequence order, for the background committer to persist into kvstore.
func (l *Log) Drain() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	out := l.pending
	l.pending = nil
	return out
}

// Pending reports how many records are waiting to be drained.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Iterate walks a raw buffer of one or more sequential action records
// (as AppendRecord received, or as read back from a dump), invoking fn
// per decoded record. It stops and returns the first decode error,
// surfacing codec.ErrCorrupted verbatim so callers can map it to
// FileCorrupted (spec.md §8, boundary case: a flipped byte yields
// FileCorrupted without mutating state). Used by repo's background
// committer to apply each drained record to the kv store.
func Iterate(data []byte, fn func(codec.DecodedAction) error) error {
	for len(data) > 0 {
		act, n, err := codec.DecodeAction(data)
		if err != nil {
			return err
		}
		if err := fn(*act); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
