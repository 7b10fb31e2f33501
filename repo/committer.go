// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/solidcoredata/tsmeta/actionlog"
	"github.com/solidcoredata/tsmeta/codec"
	"github.com/solidcoredata/tsmeta/kvstore"
)

// committer periodically drains the action log and applies each record to
// the kv store, replacing the teacher's service/config.Run (a bare
// five-second sleep loop) with the actual background flush the glossary's
// "Action log" entry describes: "flushed by the background committer".
type committer struct {
	log      *actionlog.Log
	store    *kvstore.Store
	interval time.Duration
	logger   *slog.Logger
}

// Run drains the action log on a fixed interval until ctx is cancelled,
// applying every drained record to the kv store. Matches the signature
// internal/start.RunAll expects (func(context.Context) error).
func (c *committer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drainOnce()
			return nil
		case <-ticker.C:
			c.drainOnce()
		}
	}
}

func (c *committer) drainOnce() {
	records := c.log.Drain()
	for _, rec := range records {
		if err := actionlog.Iterate(rec.Buf, c.applyAction); err != nil {
			c.logger.Error("committer: drain", "seq", rec.Seq, "err", err)
		}
	}
}

func (c *committer) applyAction(a codec.DecodedAction) error {
	switch a.Act {
	case codec.ActUpdateMeta:
		return c.store.Put(a.UID, a.Body)
	case codec.ActDropMeta:
		return c.store.Delete(a.UID)
	default:
		c.logger.Warn("committer: unknown action kind", "act", a.Act, "uid", a.UID)
		return nil
	}
}
