// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec encodes and decodes the binary records the metadata engine
// persists: one record per table, framed inside an action record that an
// actionlog.Log appends and a kvstore.Store later replays.
//
/*

Table record layout (order fixed, little-endian fixed-width primitives,
length-prefixed variable bytes):

	u8  kind
	i16 name_len   | bytes[name_len]
	u64 uid
	i32 tid
	if Child:
		u64 super_uid
		KVRow tag_values
	else:
		u8  num_schemas
		repeated: Schema{version:i32, ncols:i16, cols:[{colId:i16,type:u8,bytes:i16}]*}
		if Super:  Schema tag_schema
		if Stream: length-prefixed UTF-8 sql

KVRow layout (sparse column-id -> value):

	i16 num_entries
	repeated: {colId:i16, valueLen:i32, value[valueLen]}

Action record layout, one per table mutation:

	u32 record_len            (ListNode header: total length of what follows)
	u8  act                   (ActObj: 1=UpdateMeta, 2=DropMeta)
	u64 uid                   (ActObj)
	i32 body_len              (ActCont)
	body[body_len]            (ActCont, the table record bytes above, or empty for a drop)
	u64 checksum              (ActCont, xxhash.Sum64 of body only)

The checksum covers body only. A corrupted body surfaces as codec.ErrCorrupted
on decode, which the caller turns into the engine's FileCorrupted error kind.
*/
package codec
