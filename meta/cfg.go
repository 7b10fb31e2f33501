// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

// TableCfg is the vetted, in-process configuration a create or update
// operation consumes, produced by the config builder (NewTableCfg)
// from a network-delivered create message. Grounded on tsdbMeta.c's
// STableCfg / tsdbInitTableCfg and the tsdbTableSet* family.
type TableCfg struct {
	Type TableKind
	UID  uint64
	TID  int32

	// Normal / Child / Stream name. Super tables use SuperName instead
	// (spec.md §4.1: "For Super, name is copied from cfg.super_name").
	Name string

	// Super only (also carried on a Child create message, since a child
	// create implicitly describes its super: spec.md §4.5).
	SuperName string
	SuperUID  uint64
	TagSchema *Schema

	// Normal / Stream / implicit-Super data schema.
	Schema *Schema

	// Child only.
	TagValues KVRow

	// Stream only.
	StreamSQL string
}

// CreateTableMessage is the network-delivered wire message the config
// builder validates into a TableCfg (spec.md §2: "DDL request → TableCfg
// via config builder"). Its shape is intentionally close to TableCfg; the
// builder's job is to reject malformed or inconsistent messages before
// they ever reach the meta container.
type CreateTableMessage struct {
	Type      TableKind
	UID       uint64
	TID       int32
	Name      string
	SuperName string
	SuperUID  uint64
	TagSchema *Schema
	Schema    *Schema
	TagValues KVRow
	StreamSQL string
}

// NewTableCfg runs the config builder's validation gate over msg, returning
// InvalidCreateMsg on any structural violation (spec.md §6:
// "InvalidCreateMsg").
func NewTableCfg(msg *CreateTableMessage) (*TableCfg, error) {
	if msg == nil {
		return nil, newErr(InvalidCreateMsg, "nil create message")
	}
	if msg.UID == 0 {
		return nil, newErr(InvalidCreateMsg, "uid must be non-zero")
	}

	cfg := &TableCfg{
		Type:      msg.Type,
		UID:       msg.UID,
		TID:       msg.TID,
		Name:      msg.Name,
		SuperName: msg.SuperName,
		SuperUID:  msg.SuperUID,
		TagSchema: msg.TagSchema,
		Schema:    msg.Schema,
		TagValues: msg.TagValues,
		StreamSQL: msg.StreamSQL,
	}

	switch msg.Type {
	case Normal, Stream:
		// Boundary case (spec.md §8): "tid == 0 is rejected".
		if cfg.TID == 0 {
			return nil, newErr(InvalidCreateMsg, "tid must be non-zero for table %q", cfg.Name)
		}
		if cfg.Name == "" {
			return nil, newErr(InvalidCreateMsg, "table name required")
		}
		if cfg.Schema == nil || len(cfg.Schema.Columns) == 0 {
			return nil, newErr(InvalidCreateMsg, "table %q requires a non-empty schema", cfg.Name)
		}
		if msg.Type == Stream && cfg.StreamSQL == "" {
			return nil, newErr(InvalidCreateMsg, "stream table %q requires stream_sql", cfg.Name)
		}
	case Child:
		if cfg.TID == 0 {
			return nil, newErr(InvalidCreateMsg, "tid must be non-zero for table %q", cfg.Name)
		}
		if cfg.Name == "" {
			return nil, newErr(InvalidCreateMsg, "table name required")
		}
		if cfg.SuperUID == 0 {
			return nil, newErr(InvalidCreateMsg, "child table %q requires super_uid", cfg.Name)
		}
		if cfg.SuperName == "" {
			return nil, newErr(InvalidCreateMsg, "child table %q requires super_name", cfg.Name)
		}
		if cfg.TagSchema == nil || len(cfg.TagSchema.Columns) == 0 {
			return nil, newErr(InvalidCreateMsg, "child table %q requires a non-empty tag schema", cfg.Name)
		}
		if cfg.Schema == nil || len(cfg.Schema.Columns) == 0 {
			return nil, newErr(InvalidCreateMsg, "child table %q requires its super's data schema", cfg.Name)
		}
	case Super:
		if cfg.SuperName == "" {
			return nil, newErr(InvalidCreateMsg, "super table requires super_name")
		}
		if cfg.TagSchema == nil || len(cfg.TagSchema.Columns) == 0 {
			return nil, newErr(InvalidCreateMsg, "super table %q requires a non-empty tag schema", cfg.SuperName)
		}
		if cfg.Schema == nil || len(cfg.Schema.Columns) == 0 {
			return nil, newErr(InvalidCreateMsg, "super table %q requires a non-empty data schema", cfg.SuperName)
		}
	default:
		return nil, newErr(InvalidCreateMsg, "unknown table type %v", msg.Type)
	}

	return cfg, nil
}
