// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/solidcoredata/tsmeta/codec"
)

// ActionSink is the external action-log collaborator the core consumes
// (spec.md §2, §6: "allocate_record / append_record"). One contiguous
// buffer per DDL transaction means crash recovery observes either all of
// a transaction's records or none of them.
type ActionSink interface {
	AllocateRecord(n int) ([]byte, error)
	AppendRecord(buf []byte)
}

// ConfigFetcher refreshes stale super-table metadata on demand (spec.md §6,
// config_fetch). The wire encoding of the round trip is the caller's
// concern; this boundary passes an already-decoded message.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context, tsdbID int32, tid int32) (*CreateTableMessage, error)
}

// StreamHandler tears down a stream table's continuous-query state on drop
// (spec.md §6, cq_drop).
type StreamHandler interface {
	DropCQ(uid uint64)
}

// TagValueUpdate is one client-submitted tag mutation request (spec.md
// §4.5, update_tag_value).
type TagValueUpdate struct {
	UID        uint64
	TID        int32
	ColID      int16
	Value      []byte
	TagVersion int32 // client's view of the super's current tag schema version
}

// DDL composes create/drop/update-tag-value/update-schema over one repo's
// Meta, recording every committed change in the action log (spec.md §4.5).
// An update that changes nothing appends no record.
type DDL struct {
	meta   *Meta
	sink   ActionSink
	stream StreamHandler
	fetch  ConfigFetcher
	tsdbID int32
	log    *slog.Logger

	fetchGroup singleflight.Group
}

// NewDDL wires a DDL surface over meta. stream and fetch may be nil if the
// repo never serves stream tables or never needs tag-version refresh.
func NewDDL(m *Meta, sink ActionSink, stream StreamHandler, fetch ConfigFetcher, tsdbID int32, log *slog.Logger) *DDL {
	if log == nil {
		log = slog.Default()
	}
	return &DDL{meta: m, sink: sink, stream: stream, fetch: fetch, tsdbID: tsdbID, log: log}
}

func (d *DDL) fail(op string, uid uint64, err error) error {
	d.log.Error(op, "tsdb_id", d.tsdbID, "uid", uid, "err", err)
	return err
}

func (d *DDL) undoAll(added []*Table) {
	for i := len(added) - 1; i >= 0; i-- {
		d.meta.removeTableLocked(added[i], true)
	}
}

// CreateTable implements spec.md §4.5's create_table. cfg must already have
// passed NewTableCfg's validation gate.
func (d *DDL) CreateTable(cfg *TableCfg) error {
	d.meta.Lock()
	defer d.meta.Unlock()

	if _, exists := d.meta.uidMap[cfg.UID]; exists {
		return d.fail("create_table", cfg.UID, newErr(TableAlreadyExists, "uid %d already registered", cfg.UID))
	}

	var added []*Table

	if cfg.Type != Child {
		t, err := newTable(cfg, false)
		if err != nil {
			return d.fail("create_table", cfg.UID, err)
		}
		if err := d.meta.addTableLocked(t, true); err != nil {
			return d.fail("create_table", cfg.UID, err)
		}
		added = append(added, t)
	} else {
		super, ok := d.meta.uidMap[cfg.SuperUID]
		switch {
		case !ok:
			// A child create implicitly carries its super's schema
			// (spec.md §4.5): construct and register a new super from
			// the same cfg.
			newSuper, err := newTable(cfg, true)
			if err != nil {
				return d.fail("create_table", cfg.UID, err)
			}
			if err := d.meta.addTableLocked(newSuper, true); err != nil {
				return d.fail("create_table", cfg.UID, err)
			}
			added = append(added, newSuper)
		case super.kind != Super:
			return d.fail("create_table", cfg.UID, newErr(InvalidTableType, "uid %d is not a super table", cfg.SuperUID))
		default:
			// Super already exists: grow it to the versions carried on
			// this create message, if newer.
			if _, err := d.updateTableLocked(super, cfg); err != nil {
				return d.fail("create_table", cfg.UID, err)
			}
		}

		child, err := newTable(cfg, false)
		if err != nil {
			d.undoAll(added)
			return d.fail("create_table", cfg.UID, err)
		}
		if err := d.meta.addTableLocked(child, true); err != nil {
			d.undoAll(added)
			return d.fail("create_table", cfg.UID, err)
		}
		added = append(added, child)
	}

	if err := d.appendCreateActions(added); err != nil {
		d.undoAll(added)
		return d.fail("create_table", cfg.UID, err)
	}

	d.meta.rescanMaximaLocked()
	d.log.Info("create_table", "tsdb_id", d.tsdbID, "uid", cfg.UID, "kind", cfg.Type, "tables_added", len(added))
	return nil
}

// DropTable implements spec.md §4.5's drop_table, including the super
// cascade over its indexed children.
func (d *DDL) DropTable(id TableID) error {
	d.meta.Lock()
	defer d.meta.Unlock()

	t, ok := d.meta.uidMap[id.UID]
	if !ok {
		return d.fail("drop_table", id.UID, newErr(InvalidTableId, "uid %d not found", id.UID))
	}

	if t.kind == Stream && d.stream != nil {
		d.stream.DropCQ(t.uid)
	}

	var dropped []*Table
	if t.kind == Super {
		for _, c := range t.tagIndex.children() {
			dropped = append(dropped, c)
		}
		for _, c := range dropped {
			// The whole index is being dropped with the super, so each
			// child's removal skips its own index splice.
			d.meta.removeTableLocked(c, false)
		}
	}
	dropped = append(dropped, t)
	d.meta.removeTableLocked(t, true)

	if err := d.appendDropActions(dropped); err != nil {
		return d.fail("drop_table", id.UID, err)
	}

	d.log.Info("drop_table", "tsdb_id", d.tsdbID, "uid", id.UID, "kind", t.kind, "records", len(dropped))
	return nil
}

// updateTableLocked mutates t's tag schema and/or schema history in place
// per spec.md §4.5's update_table, returning whether anything changed.
// Caller holds the write lock and asserts t is not a Child.
func (d *DDL) updateTableLocked(t *Table, cfg *TableCfg) (bool, error) {
	if t.kind == Child {
		return false, newErr(InvalidTableType, "update_table called on child uid %d", t.uid)
	}

	changed := false

	if t.kind == Super && cfg.TagSchema != nil {
		if t.tagSchema == nil || cfg.TagSchema.Version > t.tagSchema.Version {
			ts := *cfg.TagSchema
			t.tagSchema = &ts
			changed = true
		}
	}

	if cfg.Schema != nil {
		cur := t.history.current()
		if cur == nil || cfg.Schema.Version > cur.Version {
			dup := *cfg.Schema
			t.history.append(&dup)
			changed = true
		}
	}

	return changed, nil
}

// UpdateTable is the locking entry point for spec.md §4.5's update_table,
// exposed for callers outside a create_table/update_tag_value flow.
func (d *DDL) UpdateTable(uid uint64, cfg *TableCfg) error {
	d.meta.Lock()
	defer d.meta.Unlock()

	t, ok := d.meta.uidMap[uid]
	if !ok {
		return d.fail("update_table", uid, newErr(InvalidTableId, "uid %d not found", uid))
	}

	changed, err := d.updateTableLocked(t, cfg)
	if err != nil {
		return d.fail("update_table", uid, err)
	}
	if !changed {
		return nil
	}

	d.meta.rescanMaximaLocked()
	if err := d.appendCreateActions([]*Table{t}); err != nil {
		return d.fail("update_table", uid, err)
	}

	d.log.Info("update_table", "tsdb_id", d.tsdbID, "uid", uid)
	return nil
}

// UpdateTagValue implements spec.md §4.5's update_tag_value, including the
// config_fetch refresh path for a stale client tag version, deduplicated
// across concurrent callers on the same (tsdb_id, tid) via singleflight.
func (d *DDL) UpdateTagValue(ctx context.Context, msg *TagValueUpdate) error {
	d.meta.Lock()

	child, ok := d.meta.uidMap[msg.UID]
	if !ok {
		d.meta.Unlock()
		return d.fail("update_tag_value", msg.UID, newErr(InvalidTableId, "uid %d not found", msg.UID))
	}
	if child.kind != Child {
		d.meta.Unlock()
		return d.fail("update_tag_value", msg.UID, newErr(InvalidAction, "uid %d is not a child table", msg.UID))
	}
	if child.tid != msg.TID {
		d.meta.Unlock()
		return d.fail("update_tag_value", msg.UID, newErr(InvalidTableId, "tid mismatch for uid %d", msg.UID))
	}
	if child.superRef == nil {
		d.meta.Unlock()
		return d.fail("update_tag_value", msg.UID, newErr(MissingSuperTable, "child uid %d has no super_ref", msg.UID))
	}

	serverVersion := int32(0)
	if child.superRef.tagSchema != nil {
		serverVersion = child.superRef.tagSchema.Version
	}

	if msg.TagVersion < serverVersion {
		d.meta.Unlock()
		return d.fail("update_tag_value", msg.UID, newErr(TagVersionOutOfDate, "client tag version %d older than server %d", msg.TagVersion, serverVersion))
	}

	if msg.TagVersion > serverVersion {
		tid := child.tid
		d.meta.Unlock()
		if err := d.refreshSuperConfig(ctx, d.tsdbID, tid); err != nil {
			return d.fail("update_tag_value", msg.UID, err)
		}
		d.meta.Lock()
		var ok2 bool
		child, ok2 = d.meta.uidMap[msg.UID]
		if !ok2 || child.superRef == nil {
			d.meta.Unlock()
			return d.fail("update_tag_value", msg.UID, newErr(MissingSuperTable, "child uid %d lost its super after refresh", msg.UID))
		}
	}
	defer d.meta.Unlock()

	super := child.superRef
	isTagZero := super.tagSchema != nil && len(super.tagSchema.Columns) > 0 && super.tagSchema.Columns[0].ColID == msg.ColID

	if isTagZero {
		super.tagIndex.remove(child)
	}
	child.tagValues.Set(msg.ColID, msg.Value)
	if isTagZero {
		super.tagIndex.insert(child)
	}

	if err := d.appendCreateActions([]*Table{child}); err != nil {
		return d.fail("update_tag_value", msg.UID, err)
	}

	d.log.Info("update_tag_value", "tsdb_id", d.tsdbID, "uid", msg.UID, "col", msg.ColID)
	return nil
}

// refreshSuperConfig pulls a fresh create message for tid via config_fetch,
// rebuilds a TableCfg, and grows the super's tag schema/schema history.
// Concurrent refreshes for the same (tsdbID, tid) collapse into one fetch.
func (d *DDL) refreshSuperConfig(ctx context.Context, tsdbID, tid int32) error {
	if d.fetch == nil {
		return newErr(SystemError, "update_tag_value: no config fetcher configured")
	}
	key := fmt.Sprintf("%d:%d", tsdbID, tid)
	_, err, _ := d.fetchGroup.Do(key, func() (interface{}, error) {
		raw, ferr := d.fetch.FetchConfig(ctx, tsdbID, tid)
		if ferr != nil {
			return nil, wrapErr(SystemError, ferr, "config_fetch tsdb_id=%d tid=%d", tsdbID, tid)
		}
		cfg, cerr := NewTableCfg(raw)
		if cerr != nil {
			return nil, cerr
		}

		d.meta.Lock()
		defer d.meta.Unlock()
		super, ok := d.meta.uidMap[cfg.SuperUID]
		if !ok || super.kind != Super {
			return nil, newErr(MissingSuperTable, "config_fetch: super uid %d not registered", cfg.SuperUID)
		}
		if _, err := d.updateTableLocked(super, cfg); err != nil {
			return nil, err
		}
		d.meta.rescanMaximaLocked()
		if err := d.appendCreateActions([]*Table{super}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// appendCreateActions encodes one ActUpdateMeta record per table into a
// single arena allocation and appends it as one transaction (spec.md §4.5:
// "so that crash recovery observes either both or neither").
func (d *DDL) appendCreateActions(tables []*Table) error {
	bodies := make([][]byte, len(tables))
	total := 0
	for i, t := range tables {
		body, err := codec.EncodeTable(nil, toTableRecord(t))
		if err != nil {
			return wrapErr(SystemError, err, "encode table uid %d", t.uid)
		}
		bodies[i] = body
		total += codec.ActionSize(len(body))
	}

	buf, err := d.sink.AllocateRecord(total)
	if err != nil {
		return wrapErr(OutOfMemory, err, "allocate %d bytes for %d action records", total, len(tables))
	}
	off := 0
	for i, t := range tables {
		off += copy(buf[off:], codec.EncodeAction(codec.ActUpdateMeta, t.uid, bodies[i]))
	}
	d.sink.AppendRecord(buf)
	return nil
}

// appendDropActions records one ActDropMeta per dropped table (spec.md
// §4.5); the body is empty, since a drop carries no table state.
func (d *DDL) appendDropActions(tables []*Table) error {
	total := 0
	for range tables {
		total += codec.ActionSize(0)
	}
	buf, err := d.sink.AllocateRecord(total)
	if err != nil {
		return wrapErr(OutOfMemory, err, "allocate %d bytes for %d drop records", total, len(tables))
	}
	off := 0
	for _, t := range tables {
		off += copy(buf[off:], codec.EncodeAction(codec.ActDropMeta, t.uid, nil))
	}
	d.sink.AppendRecord(buf)
	return nil
}

// toTableRecord converts t's current in-memory state to its wire DTO.
func toTableRecord(t *Table) *codec.TableRecord {
	rec := &codec.TableRecord{Kind: t.kind, Name: t.name, UID: t.uid, TID: t.tid}

	if t.kind == Child {
		rec.SuperUID = t.superUID
		rec.TagValues = t.tagValues.toWire()
		return rec
	}

	if t.history != nil {
		all := t.history.all()
		rec.Schemas = make([]codec.SchemaRecord, len(all))
		for i, s := range all {
			rec.Schemas[i] = s.toRecord()
		}
	}
	if t.kind == Super && t.tagSchema != nil {
		ts := t.tagSchema.toRecord()
		rec.TagSchema = &ts
	}
	if t.kind == Stream {
		rec.StreamSQL = t.streamSQL
	}
	return rec
}
