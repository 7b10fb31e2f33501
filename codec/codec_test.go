// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeTable_Normal(t *testing.T) {
	rec := &TableRecord{
		Kind: Normal,
		Name: "sensor_readings",
		UID:  100,
		TID:  5,
		Schemas: []SchemaRecord{
			{Version: 1, Columns: []ColumnRecord{
				{ColID: 1, Type: Int64, Bytes: 8},
				{ColID: 2, Type: Float64, Bytes: 8},
			}},
		},
	}
	buf, err := EncodeTable(nil, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, n, err := DecodeTable(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.Name != rec.Name || got.UID != rec.UID || got.TID != rec.TID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Schemas) != 1 || len(got.Schemas[0].Columns) != 2 {
		t.Fatalf("schema round trip mismatch: %+v", got.Schemas)
	}
}

func TestEncodeDecodeTable_Child(t *testing.T) {
	rec := &TableRecord{
		Kind:     Child,
		Name:     "d1",
		UID:      11,
		TID:      1,
		SuperUID: 10,
		TagValues: map[int16][]byte{
			0: {42, 0, 0, 0},
		},
	}
	buf, err := EncodeTable(nil, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := DecodeTable(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SuperUID != 10 {
		t.Fatalf("super_uid mismatch: %d", got.SuperUID)
	}
	if !bytes.Equal(got.TagValues[0], rec.TagValues[0]) {
		t.Fatalf("tag value mismatch: %v", got.TagValues[0])
	}
}

func TestEncodeDecodeTable_Super(t *testing.T) {
	rec := &TableRecord{
		Kind: Super,
		Name: "s1",
		UID:  10,
		TID:  0,
		Schemas: []SchemaRecord{
			{Version: 1, Columns: []ColumnRecord{{ColID: 1, Type: Int64, Bytes: 8}}},
		},
		TagSchema: &SchemaRecord{Version: 1, Columns: []ColumnRecord{{ColID: 0, Type: Int32, Bytes: 4}}},
	}
	buf, err := EncodeTable(nil, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := DecodeTable(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TagSchema == nil || len(got.TagSchema.Columns) != 1 {
		t.Fatalf("tag schema mismatch: %+v", got.TagSchema)
	}
}

func TestEncodeDecodeTable_Stream(t *testing.T) {
	rec := &TableRecord{
		Kind: Stream,
		Name: "st1",
		UID:  20,
		TID:  3,
		Schemas: []SchemaRecord{
			{Version: 1, Columns: []ColumnRecord{{ColID: 1, Type: Int64, Bytes: 8}}},
		},
		StreamSQL: "select avg(v) from d1 interval(1m)",
	}
	buf, err := EncodeTable(nil, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := DecodeTable(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StreamSQL != rec.StreamSQL {
		t.Fatalf("stream sql mismatch: %q", got.StreamSQL)
	}
}

func TestActionRoundTrip(t *testing.T) {
	rec := &TableRecord{Kind: Normal, Name: "t", UID: 1, TID: 1, Schemas: []SchemaRecord{{Version: 1}}}
	body, err := EncodeTable(nil, rec)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}
	frame := EncodeAction(ActUpdateMeta, rec.UID, body)
	if len(frame) != ActionSize(len(body)) {
		t.Fatalf("ActionSize mismatch: got frame %d, want %d", len(frame), ActionSize(len(body)))
	}
	da, n, err := DecodeAction(frame)
	if err != nil {
		t.Fatalf("decode action: %v", err)
	}
	if n != len(frame) {
		t.Fatalf("consumed %d, want %d", n, len(frame))
	}
	if da.Act != ActUpdateMeta || da.UID != rec.UID {
		t.Fatalf("action fields mismatch: %+v", da)
	}
	if !bytes.Equal(da.Body, body) {
		t.Fatalf("body mismatch")
	}
}

func TestActionCorruption(t *testing.T) {
	body := []byte{1, 2, 3, 4}
	frame := EncodeAction(ActUpdateMeta, 1, body)
	// Flip one byte inside the body.
	frame[4+1+8+4] ^= 0xFF
	_, _, err := DecodeAction(frame)
	if err == nil {
		t.Fatalf("expected corruption error")
	}
}

func TestMultipleActionsSequential(t *testing.T) {
	var buf []byte
	bodies := [][]byte{{1}, {2, 2}, {3, 3, 3}}
	for i, b := range bodies {
		buf = append(buf, EncodeAction(ActUpdateMeta, uint64(i+1), b)...)
	}
	off := 0
	for i, want := range bodies {
		da, n, err := DecodeAction(buf[off:])
		if err != nil {
			t.Fatalf("decode[%d]: %v", i, err)
		}
		if !bytes.Equal(da.Body, want) {
			t.Fatalf("decode[%d]: body mismatch", i)
		}
		off += n
	}
	if off != len(buf) {
		t.Fatalf("did not consume entire log: %d of %d", off, len(buf))
	}
}
