// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldCoder encodes and decodes a single value of a fixed wire type.
// Variable-length types (Binary, NChar) are framed by their caller with an
// explicit length prefix rather than through FieldCoder.
type FieldCoder interface {
	// Encode appends the encoded value to writeTo and returns the result.
	Encode(writeTo []byte, value interface{}) ([]byte, error)
	// Decode reads exactly FixedWidth bytes from data and returns the value.
	Decode(data []byte) (interface{}, error)
}

// CoderFor returns the fixed-width FieldCoder for t, or (nil, false) for a
// variable-length type which has no FieldCoder.
func CoderFor(t ColType) (FieldCoder, bool) {
	switch t {
	case Bool:
		return coderBool{}, true
	case Int8:
		return coderInt8{}, true
	case Int16:
		return coderInt16{}, true
	case Int32:
		return coderInt32{}, true
	case Int64:
		return coderInt64{}, true
	case Float32:
		return coderFloat32{}, true
	case Float64:
		return coderFloat64{}, true
	default:
		return nil, false
	}
}

type coderBool struct{}

func (coderBool) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, ok := value.(bool)
	if !ok {
		return writeTo, fmt.Errorf("codec: bool coder given %T", value)
	}
	b := byte(0)
	if v {
		b = 1
	}
	return append(writeTo, b), nil
}
func (coderBool) Decode(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("codec: short buffer for bool")
	}
	return data[0] != 0, nil
}

type coderInt8 struct{}

func (coderInt8) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, err := asInt64(value)
	if err != nil {
		return writeTo, err
	}
	return append(writeTo, byte(int8(v))), nil
}
func (coderInt8) Decode(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("codec: short buffer for int8")
	}
	return int8(data[0]), nil
}

type coderInt16 struct{}

func (coderInt16) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, err := asInt64(value)
	if err != nil {
		return writeTo, err
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(int16(v)))
	return append(writeTo, buf[:]...), nil
}
func (coderInt16) Decode(data []byte) (interface{}, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("codec: short buffer for int16")
	}
	return int16(binary.LittleEndian.Uint16(data)), nil
}

type coderInt32 struct{}

func (coderInt32) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, err := asInt64(value)
	if err != nil {
		return writeTo, err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	return append(writeTo, buf[:]...), nil
}
func (coderInt32) Decode(data []byte) (interface{}, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: short buffer for int32")
	}
	return int32(binary.LittleEndian.Uint32(data)), nil
}

type coderInt64 struct{}

func (coderInt64) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, err := asInt64(value)
	if err != nil {
		return writeTo, err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return append(writeTo, buf[:]...), nil
}
func (coderInt64) Decode(data []byte) (interface{}, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("codec: short buffer for int64")
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

type coderFloat32 struct{}

func (coderFloat32) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, ok := value.(float32)
	if !ok {
		return writeTo, fmt.Errorf("codec: float32 coder given %T", value)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	return append(writeTo, buf[:]...), nil
}
func (coderFloat32) Decode(data []byte) (interface{}, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: short buffer for float32")
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
}

type coderFloat64 struct{}

func (coderFloat64) Encode(writeTo []byte, value interface{}) ([]byte, error) {
	v, ok := value.(float64)
	if !ok {
		return writeTo, fmt.Errorf("codec: float64 coder given %T", value)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return append(writeTo, buf[:]...), nil
}
func (coderFloat64) Decode(data []byte) (interface{}, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("codec: short buffer for float64")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("codec: unsupported integer value type %T", value)
	}
}
