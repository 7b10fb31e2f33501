// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"github.com/solidcoredata/tsmeta/codec"
)

// RestoreTable decodes one persisted action-record body into a table and
// registers it with tag-index insertion deferred (spec.md §4.6:
// "restore_table... add_table(t, with_index=false)"). Checksum validation
// has already happened one layer down, in codec.DecodeAction.
func RestoreTable(m *Meta, body []byte) error {
	rec, _, err := codec.DecodeTable(body)
	if err != nil {
		return wrapErr(FileCorrupted, err, "decode table record")
	}

	t, err := fromTableRecord(rec)
	if err != nil {
		return err
	}

	return m.AddTable(t, false)
}

// fromTableRecord reconstructs a Table from its wire DTO, independent of
// NewTableCfg's network-message validation gate (a persisted record is
// already trusted).
func fromTableRecord(rec *codec.TableRecord) (*Table, error) {
	t := &Table{kind: rec.Kind, name: rec.Name, uid: rec.UID, tid: rec.TID}
	t.refcount.Store(1)

	switch rec.Kind {
	case Child:
		t.superUID = rec.SuperUID
		t.tagValues = kvRowFromWire(rec.TagValues)
	case Super:
		if rec.TagSchema == nil {
			return nil, newErr(FileCorrupted, "super table %q record missing tag schema", rec.Name)
		}
		ts := schemaFromRecord(rec.TagSchema)
		t.tagSchema = ts
		t.tagIndex = newTagIndex()
		t.history = schemaHistoryFromRecords(rec.Schemas)
	case Normal, Stream:
		t.history = schemaHistoryFromRecords(rec.Schemas)
		if rec.Kind == Stream {
			t.streamSQL = rec.StreamSQL
		}
	default:
		return nil, newErr(FileCorrupted, "unknown table kind %v in record", rec.Kind)
	}

	return t, nil
}

func schemaHistoryFromRecords(recs []codec.SchemaRecord) *schemaHistory {
	h := &schemaHistory{versions: make([]*Schema, len(recs))}
	for i := range recs {
		h.versions[i] = schemaFromRecord(&recs[i])
	}
	return h
}

// Organize is the package-level entry point kvstore.Open calls once after
// replaying every persisted record (spec.md §4.6, §6: organize_cb).
func Organize(m *Meta) error {
	return m.Organize()
}
