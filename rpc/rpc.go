// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpc defines the wire-facing collaborator interfaces the core's
// meta.ConfigFetcher and meta.StreamHandler are adapted to, grounded on
// dca/rpc/rpc.go's ConfigService.Alive shape (a request/response RPC pair)
// generalized from a one-method health check into the config_fetch and
// cq_drop calls spec.md §6 names as consumed operations.
package rpc

import (
	"context"
	"log/slog"

	"github.com/solidcoredata/tsmeta/meta"
)

// ConfigService is the network-facing peer a repo calls to refresh stale
// super-table metadata (spec.md §6: "config_fetch(tsdb_id, tid)").
type ConfigService interface {
	Alive(ctx context.Context, req *AliveRequest) (*AliveResponse, error)
	FetchConfig(ctx context.Context, req *FetchConfigRequest) (*FetchConfigResponse, error)
}

// AliveRequest/AliveResponse are unchanged from the teacher's health check.
type AliveRequest struct{}
type AliveResponse struct{}

// FetchConfigRequest identifies, by shard id and child tid, the table whose
// create message (carrying its super's schemas) is being re-requested.
type FetchConfigRequest struct {
	TsdbID int32
	TID    int32
}

// FetchConfigResponse carries the decoded create message straight through;
// the wire encoding between an actual client and server is this package's
// concern, not the engine's (spec.md §1: "network/RPC transport" is out of
// scope for the core).
type FetchConfigResponse struct {
	Message *meta.CreateTableMessage
}

// StreamService is the continuous-query collaborator a repo calls when a
// Stream table is dropped (spec.md §6: "cq_drop(handle)").
type StreamService interface {
	DropCQ(ctx context.Context, req *DropCQRequest) (*DropCQResponse, error)
}

type DropCQRequest struct {
	UID uint64
}
type DropCQResponse struct{}

// ClientConfigFetcher adapts a ConfigService client into meta.ConfigFetcher,
// the boundary the DDL layer actually consumes (spec.md §6: config_fetch).
type ClientConfigFetcher struct {
	Svc ConfigService
}

func (c *ClientConfigFetcher) FetchConfig(ctx context.Context, tsdbID int32, tid int32) (*meta.CreateTableMessage, error) {
	resp, err := c.Svc.FetchConfig(ctx, &FetchConfigRequest{TsdbID: tsdbID, TID: tid})
	if err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// NewClientStreamHandler adapts a StreamService client into
// meta.StreamHandler. DropCQ is best-effort from the catalog's point of
// view (spec.md §4.5 only requires notifying the stream handler, not
// waiting on it), so failures are logged rather than propagated.
func NewClientStreamHandler(svc StreamService, logger *slog.Logger) *clientStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &clientStreamHandler{svc: svc, logger: logger}
}

type clientStreamHandler struct {
	svc    StreamService
	logger *slog.Logger
}

func (c *clientStreamHandler) DropCQ(uid uint64) {
	_, err := c.svc.DropCQ(context.Background(), &DropCQRequest{UID: uid})
	if err != nil {
		c.logger.Error("drop_cq", "uid", uid, "err", err)
	}
}
