// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package actionlog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/tsmeta/actionlog"
	"github.com/solidcoredata/tsmeta/codec"
)

func TestAllocateAppendDrain(t *testing.T) {
	log := actionlog.New()

	body := []byte("hello")
	buf, err := log.AllocateRecord(codec.ActionSize(len(body)))
	require.NoError(t, err)
	copy(buf, codec.EncodeAction(codec.ActUpdateMeta, 42, body))
	log.AppendRecord(buf)

	require.Equal(t, 1, log.Pending())

	records := log.Drain()
	require.Len(t, records, 1)
	require.Equal(t, int64(1), records[0].Seq)
	require.Equal(t, 0, log.Pending())

	var got []codec.DecodedAction
	err = actionlog.Iterate(records[0].Buf, func(a codec.DecodedAction) error {
		got = append(got, a)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(42), got[0].UID)
	require.Equal(t, codec.ActUpdateMeta, got[0].Act)
	require.Equal(t, body, got[0].Body)
}

func TestIterateMultipleRecordsOneTransaction(t *testing.T) {
	log := actionlog.New()

	b1 := codec.EncodeAction(codec.ActUpdateMeta, 1, []byte("a"))
	b2 := codec.EncodeAction(codec.ActUpdateMeta, 2, []byte("bb"))
	total := len(b1) + len(b2)

	buf, err := log.AllocateRecord(total)
	require.NoError(t, err)
	n := copy(buf, b1)
	copy(buf[n:], b2)
	log.AppendRecord(buf)

	records := log.Drain()
	require.Len(t, records, 1)

	var uids []uint64
	err = actionlog.Iterate(records[0].Buf, func(a codec.DecodedAction) error {
		uids = append(uids, a.UID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, uids)
}

func TestIterateCorruption(t *testing.T) {
	buf := codec.EncodeAction(codec.ActUpdateMeta, 7, []byte("payload"))
	buf[len(buf)-1] ^= 0xFF

	err := actionlog.Iterate(buf, func(codec.DecodedAction) error { return nil })
	require.Error(t, err)
}
