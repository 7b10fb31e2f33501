// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package streamnotify carries schema-version change announcements from a
// repo to the query nodes that cache its schemas, adapted from
// dca/internal/connect/connect.go's NotifyToServer/NotifyToClient heartbeat
// protocol. The original shape (a client announcing its current version
// set, a server announcing the handful of versions relevant to it) maps
// directly onto a query node announcing which table versions it has
// cached and a repo announcing which versions are now current.
package streamnotify

import "time"

// CatalogAnnounce is what a repo sends on each heartbeat: the current
// version of every table schema that changed recently, so a query node can
// tell whether its cached schema is stale without a round trip per query.
type CatalogAnnounce struct {
	TsdbID int32

	// Recent carries the most recently committed schema version for every
	// table whose schema_history changed since the last heartbeat.
	Recent []TableVersion
}

// TableVersion names one table's current schema version as of this
// announce.
type TableVersion struct {
	UID     uint64
	Version int32
	// Scheduled is set when the version becomes current at a future time
	// (reserved for staged rollout; unused by the engine today, carried for
	// parity with the teacher's NextAnnounce field).
	Scheduled *time.Time
}

// NodeAnnounce is what a query node sends on each heartbeat: the versions
// it currently has cached, so the repo can tell which nodes are stale.
type NodeAnnounce struct {
	NodeID   string
	Disconnect bool
	Cached   []TableVersion
}

// Subscriber is the notification channel pair a query node opens against a
// repo (adapted from connect.go's Notify interface).
type Subscriber interface {
	Subscribe(toRepo chan NodeAnnounce, toNode chan CatalogAnnounce) error
}

// Broadcaster fans a CatalogAnnounce out to every subscribed query node.
// Grounded on connect.go's NotifyServer, generalized from an empty stub
// into an actual registry keyed by node id.
type Broadcaster struct {
	subscribers map[string]chan CatalogAnnounce
}

// NewBroadcaster returns an empty registry.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]chan CatalogAnnounce)}
}

// Register adds a query node's inbound channel, replacing any prior
// registration under the same id.
func (b *Broadcaster) Register(nodeID string, toNode chan CatalogAnnounce) {
	b.subscribers[nodeID] = toNode
}

// Unregister removes a query node, called on its disconnect announce.
func (b *Broadcaster) Unregister(nodeID string) {
	delete(b.subscribers, nodeID)
}

// Announce sends a to every currently registered node, non-blocking: a
// node whose channel is full misses this heartbeat rather than stalling
// the repo's commit path.
func (b *Broadcaster) Announce(a CatalogAnnounce) {
	for _, ch := range b.subscribers {
		select {
		case ch <- a:
		default:
		}
	}
}
