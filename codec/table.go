// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ColumnRecord is the wire form of a single schema column descriptor.
type ColumnRecord struct {
	ColID int16
	Type  ColType
	Bytes int16 // byte width: fixed types carry their FixedWidth, variable types carry a max length
}

// SchemaRecord is the wire form of one versioned schema.
type SchemaRecord struct {
	Version int32
	Columns []ColumnRecord
}

// TableRecord is the wire DTO for one table, matching the layout documented
// in doc.go. meta.Table marshals to/from this shape; codec never imports
// meta, keeping the dependency direction the system overview describes
// (codec is a leaf).
type TableRecord struct {
	Kind TableKind
	Name string
	UID  uint64
	TID  int32

	// Child only.
	SuperUID  uint64
	TagValues map[int16][]byte

	// Normal/Super/Stream only.
	Schemas []SchemaRecord

	// Super only.
	TagSchema *SchemaRecord

	// Stream only.
	StreamSQL string
}

// EncodeTable appends the wire encoding of rec to buf and returns the
// extended slice.
func EncodeTable(buf []byte, rec *TableRecord) ([]byte, error) {
	buf = append(buf, byte(rec.Kind))
	buf = appendString(buf, rec.Name)
	buf = appendU64(buf, rec.UID)
	buf = appendI32(buf, rec.TID)

	if rec.Kind == Child {
		buf = appendU64(buf, rec.SuperUID)
		var err error
		buf, err = encodeKVRow(buf, rec.TagValues)
		if err != nil {
			return nil, err
		}
		return buf, nil
	}

	if len(rec.Schemas) > 255 {
		return nil, fmt.Errorf("codec: %d schemas exceeds u8 encoding range", len(rec.Schemas))
	}
	buf = append(buf, byte(len(rec.Schemas)))
	for i := range rec.Schemas {
		var err error
		buf, err = encodeSchema(buf, &rec.Schemas[i])
		if err != nil {
			return nil, err
		}
	}

	if rec.Kind == Super {
		if rec.TagSchema == nil {
			return nil, fmt.Errorf("codec: super table record missing tag schema")
		}
		var err error
		buf, err = encodeSchema(buf, rec.TagSchema)
		if err != nil {
			return nil, err
		}
	}

	if rec.Kind == Stream {
		buf = appendString(buf, rec.StreamSQL)
	}

	return buf, nil
}

// DecodeTable decodes one TableRecord from the front of data, returning the
// record and the number of bytes consumed.
func DecodeTable(data []byte) (*TableRecord, int, error) {
	r := bytes.NewReader(data)
	rec := &TableRecord{}

	kind, err := r.ReadByte()
	if err != nil {
		return nil, 0, fmt.Errorf("codec: read kind: %w", err)
	}
	rec.Kind = TableKind(kind)

	rec.Name, err = readString(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: read name: %w", err)
	}
	rec.UID, err = readU64(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: read uid: %w", err)
	}
	rec.TID, err = readI32(r)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: read tid: %w", err)
	}

	if rec.Kind == Child {
		rec.SuperUID, err = readU64(r)
		if err != nil {
			return nil, 0, fmt.Errorf("codec: read super_uid: %w", err)
		}
		rec.TagValues, err = decodeKVRow(r)
		if err != nil {
			return nil, 0, fmt.Errorf("codec: read tag_values: %w", err)
		}
		return rec, len(data) - r.Len(), nil
	}

	numSchemas, err := r.ReadByte()
	if err != nil {
		return nil, 0, fmt.Errorf("codec: read num_schemas: %w", err)
	}
	rec.Schemas = make([]SchemaRecord, numSchemas)
	for i := range rec.Schemas {
		s, err := decodeSchema(r)
		if err != nil {
			return nil, 0, fmt.Errorf("codec: read schema[%d]: %w", i, err)
		}
		rec.Schemas[i] = *s
	}

	if rec.Kind == Super {
		ts, err := decodeSchema(r)
		if err != nil {
			return nil, 0, fmt.Errorf("codec: read tag_schema: %w", err)
		}
		rec.TagSchema = ts
	}

	if rec.Kind == Stream {
		rec.StreamSQL, err = readString(r)
		if err != nil {
			return nil, 0, fmt.Errorf("codec: read stream_sql: %w", err)
		}
	}

	return rec, len(data) - r.Len(), nil
}

func encodeSchema(buf []byte, s *SchemaRecord) ([]byte, error) {
	buf = appendI32(buf, s.Version)
	if len(s.Columns) > 32767 {
		return nil, fmt.Errorf("codec: %d columns exceeds i16 encoding range", len(s.Columns))
	}
	buf = appendI16(buf, int16(len(s.Columns)))
	for _, c := range s.Columns {
		buf = appendI16(buf, c.ColID)
		buf = append(buf, byte(c.Type))
		buf = appendI16(buf, c.Bytes)
	}
	return buf, nil
}

func decodeSchema(r *bytes.Reader) (*SchemaRecord, error) {
	s := &SchemaRecord{}
	var err error
	s.Version, err = readI32(r)
	if err != nil {
		return nil, err
	}
	ncols, err := readI16(r)
	if err != nil {
		return nil, err
	}
	s.Columns = make([]ColumnRecord, ncols)
	for i := range s.Columns {
		colID, err := readI16(r)
		if err != nil {
			return nil, err
		}
		typ, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		nbytes, err := readI16(r)
		if err != nil {
			return nil, err
		}
		s.Columns[i] = ColumnRecord{ColID: colID, Type: ColType(typ), Bytes: nbytes}
	}
	return s, nil
}

func encodeKVRow(buf []byte, row map[int16][]byte) ([]byte, error) {
	if len(row) > 32767 {
		return nil, fmt.Errorf("codec: %d kvrow entries exceeds i16 encoding range", len(row))
	}
	// Deterministic order keeps encode output stable for equality tests and
	// for reproducible checksums across restarts.
	ids := make([]int16, 0, len(row))
	for id := range row {
		ids = append(ids, id)
	}
	sortInt16(ids)

	buf = appendI16(buf, int16(len(ids)))
	for _, id := range ids {
		v := row[id]
		buf = appendI16(buf, id)
		buf = appendI32(buf, int32(len(v)))
		buf = append(buf, v...)
	}
	return buf, nil
}

func decodeKVRow(r *bytes.Reader) (map[int16][]byte, error) {
	n, err := readI16(r)
	if err != nil {
		return nil, err
	}
	row := make(map[int16][]byte, n)
	for i := int16(0); i < n; i++ {
		colID, err := readI16(r)
		if err != nil {
			return nil, err
		}
		vlen, err := readI32(r)
		if err != nil {
			return nil, err
		}
		v := make([]byte, vlen)
		if _, err := io.ReadFull(r, v); err != nil {
			return nil, err
		}
		row[colID] = v
	}
	return row, nil
}

func sortInt16(s []int16) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func appendString(buf []byte, s string) []byte {
	buf = appendI16(buf, int16(len(s)))
	return append(buf, s...)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readI16(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func appendI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func readI32(r *bytes.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func appendI16(buf []byte, v int16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	return append(buf, b[:]...)
}

func readI16(r *bytes.Reader) (int16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b[:])), nil
}
