// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/solidcoredata/tsmeta/actionlog"
	"github.com/solidcoredata/tsmeta/internal/start"
	"github.com/solidcoredata/tsmeta/kvstore"
	"github.com/solidcoredata/tsmeta/meta"
)

// Repo is one process-wide catalog for a single storage shard (spec.md §2:
// "The engine is a single process-wide catalog per repository"). It wires
// meta.Meta, actionlog.Log, and kvstore.Store behind the external
// operations named in spec.md §6.
type Repo struct {
	cfg   Config
	log   *slog.Logger
	meta  *meta.Meta
	alog  *actionlog.Log
	store *kvstore.Store
	ddl   *meta.DDL

	committer *committer
}

// Open opens the kv store at cfg.RootDir, replays it into a fresh Meta, and
// returns a ready Repo. stream and fetch may be nil if this repo never
// serves stream tables or never needs update_tag_value's config_fetch
// refresh path.
func Open(ctx context.Context, cfg Config, stream meta.StreamHandler, fetch meta.ConfigFetcher, logger *slog.Logger) (*Repo, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tsdb_id", cfg.TsdbID)

	m := meta.NewMeta(cfg.MaxTables)
	alog := actionlog.New()

	dbPath := filepath.Join(cfg.RootDir, fmt.Sprintf("tsmeta-%d.db", cfg.TsdbID))
	store, err := kvstore.Open(ctx, dbPath,
		func(body []byte) error { return meta.RestoreTable(m, body) },
		func() error { return meta.Organize(m) },
	)
	if err != nil {
		return nil, fmt.Errorf("repo: open kv store: %w", err)
	}

	ddl := meta.NewDDL(m, alog, stream, fetch, cfg.TsdbID, logger)

	r := &Repo{
		cfg:   cfg,
		log:   logger,
		meta:  m,
		alog:  alog,
		store: store,
		ddl:   ddl,
		committer: &committer{
			log:      alog,
			store:    store,
			interval: time.Duration(cfg.CommitIntervalMS) * time.Millisecond,
			logger:   logger,
		},
	}
	return r, nil
}

// Meta returns the underlying catalog container, for read operations
// (GetTableByUID and friends) and for tests.
func (r *Repo) Meta() *meta.Meta { return r.meta }

// Close releases the underlying kv store handle.
func (r *Repo) Close() error {
	return r.store.Close()
}

// Start runs the background committer until ctx is cancelled or an
// interrupt signal arrives, via the teacher's signal-aware lifecycle
// helper (internal/start, kept almost verbatim).
func (r *Repo) Start(ctx context.Context, stopTimeout time.Duration) error {
	return start.Start(ctx, stopTimeout, func(ctx context.Context) error {
		return start.RunAll(ctx, r.committer.Run)
	})
}

// CreateTable implements spec.md §6's create_table(repo, cfg).
func CreateTable(r *Repo, cfg *meta.TableCfg) error {
	return r.ddl.CreateTable(cfg)
}

// DropTable implements spec.md §6's drop_table(repo, table_id).
func DropTable(r *Repo, id meta.TableID) error {
	return r.ddl.DropTable(id)
}

// UpdateTagValue implements spec.md §6's update_tag_value(repo, msg).
func UpdateTagValue(ctx context.Context, r *Repo, msg *meta.TagValueUpdate) error {
	return r.ddl.UpdateTagValue(ctx, msg)
}

// UpdateTable implements spec.md §4.5's update_table(super_or_normal, cfg)
// for callers outside create_table/update_tag_value (e.g. an explicit
// schema migration driven by the CLI).
func UpdateTable(r *Repo, uid uint64, cfg *meta.TableCfg) error {
	return r.ddl.UpdateTable(uid, cfg)
}
