// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ErrCorrupted is returned by DecodeAction when the body checksum does not
// match. The engine surfaces this as the FileCorrupted error kind.
var ErrCorrupted = errors.New("codec: action record checksum mismatch")

// EncodeAction frames one action record: a ListNode length header, an
// ActObj{act,uid}, and an ActCont{len,body,checksum} as described in doc.go.
// ActionSize reports the same total encoded size up front, so a caller can
// size an arena allocation before writing (actionlog.Log.AllocateRecord).
func EncodeAction(act Act, uid uint64, body []byte) []byte {
	contSize := 4 + len(body) + 8 // ActCont: i32 len, body, u64 checksum
	objSize := 1 + 8              // ActObj: u8 act, u64 uid
	total := objSize + contSize

	buf := make([]byte, 0, 4+total)
	buf = appendU32(buf, uint32(total))
	buf = append(buf, byte(act))
	buf = appendU64(buf, uid)
	buf = appendI32(buf, int32(len(body)))
	buf = append(buf, body...)
	sum := xxhash.Sum64(body)
	buf = appendU64(buf, sum)
	return buf
}

// ActionSize returns the number of bytes EncodeAction would produce for a
// body of length bodyLen, without building the body itself. Used to size an
// arena allocation up front (spec: alloc_bytes(repo, n)).
func ActionSize(bodyLen int) int {
	return 4 + 1 + 8 + 4 + bodyLen + 8
}

// DecodedAction is one decoded action record.
type DecodedAction struct {
	Act  Act
	UID  uint64
	Body []byte
}

// DecodeAction decodes a single action record from the front of data,
// verifying the body checksum, and returns the record plus the number of
// bytes consumed.
func DecodeAction(data []byte) (*DecodedAction, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("codec: %w: truncated record header", ErrCorrupted)
	}
	total := binary.LittleEndian.Uint32(data[:4])
	consumed := 4 + int(total)
	if len(data) < consumed {
		return nil, 0, fmt.Errorf("codec: %w: truncated record body", ErrCorrupted)
	}

	r := bytes.NewReader(data[4:consumed])
	actByte, err := r.ReadByte()
	if err != nil {
		return nil, 0, fmt.Errorf("codec: %w: %v", ErrCorrupted, err)
	}
	uid, err := readU64(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: %w: %v", ErrCorrupted, err)
	}
	bodyLen, err := readI32(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: %w: %v", ErrCorrupted, err)
	}
	if bodyLen < 0 {
		return nil, 0, fmt.Errorf("codec: %w: negative body length", ErrCorrupted)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, 0, fmt.Errorf("codec: %w: %v", ErrCorrupted, err)
	}
	wantSum, err := readU64(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: %w: %v", ErrCorrupted, err)
	}
	if gotSum := xxhash.Sum64(body); gotSum != wantSum {
		return nil, 0, fmt.Errorf("codec: %w: want %x got %x", ErrCorrupted, wantSum, gotSum)
	}

	return &DecodedAction{Act: Act(actByte), UID: uid, Body: body}, consumed, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
