// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// readUint reads a little-endian unsigned integer of size bytes.
func readUint(r *wire.Reader, size int, what string) (uint64, error) {
	b, err := r.Next(size, what)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func appendUint(dst []byte, v uint64, size int) []byte {
	for i := 0; i < size; i++ {
		dst = append(dst, byte(v>>(8*uint(i))))
	}
	return dst
}

// appendKey appends the low size bytes of v, big endian.
func appendKey(dst []byte, v uint64, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*uint(i))))
	}
	return dst
}

func signExtend(v uint64, size int) int64 {
	shift := 64 - 8*uint(size)
	return int64(v<<shift) >> shift
}

// nativeInt converts a scanned column value to int64.
func nativeInt(t Type, v interface{}) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errors.New(errors.ErrDecode, fmt.Sprintf("%s: value %d out of range", t.Name(), v))
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errNative(t, v)
		}
		return int64(v), nil
	}
	if s, ok := nativeText(v); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errParse(t, s, err)
		}
		return n, nil
	}
	return 0, errNative(t, v)
}

// nativeUint converts a scanned column value to uint64.
func nativeUint(t Type, v interface{}) (uint64, error) {
	switch v := v.(type) {
	case uint64:
		return v, nil
	case int64, int, int32, float64:
		n, err := nativeInt(t, v)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, errors.New(errors.ErrDecode, fmt.Sprintf("%s: negative value %d", t.Name(), n))
		}
		return uint64(n), nil
	}
	if s, ok := nativeText(v); ok {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, errParse(t, s, err)
		}
		return n, nil
	}
	return 0, errNative(t, v)
}

func checkUintRange(t Type, v uint64, size int) error {
	if size < 8 && v>>(8*uint(size)) != 0 {
		return errors.New(errors.ErrDecode, fmt.Sprintf("%s: value %d out of range", t.Name(), v))
	}
	return nil
}

func checkIntRange(t Type, v int64, size int) error {
	if size < 8 && signExtend(uint64(v), size) != v {
		return errors.New(errors.ErrDecode, fmt.Sprintf("%s: value %d out of range", t.Name(), v))
	}
	return nil
}

type boolType struct{}

func (boolType) sealed()      {}
func (boolType) Name() string { return "bool" }

func (boolType) Skip(r *wire.Reader) error {
	_, err := r.ReadBool()
	return err
}

func (boolType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadBool()
	if err != nil {
		return dst, err
	}
	return wire.AppendBool(dst, v), nil
}

func (boolType) BinToNative(r *wire.Reader) (driver.Value, error) {
	return r.ReadBool()
}

func (t boolType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return t.FillEmpty(dst), nil
	case bool:
		return wire.AppendBool(dst, v), nil
	case int64:
		return wire.AppendBool(dst, v != 0), nil
	}
	if s, ok := nativeText(v); ok {
		return t.Parse(dst, s)
	}
	return dst, errNative(t, v)
}

func (boolType) FillEmpty(dst []byte) []byte { return append(dst, 0) }

func (boolType) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadBool()
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(v), nil
}

func (t boolType) Parse(dst []byte, s string) ([]byte, error) {
	switch s {
	case "t", "true", "1":
		return append(dst, 1), nil
	case "f", "false", "0":
		return append(dst, 0), nil
	}
	return dst, errParse(t, s, errors.New(errors.ErrDecode, "not a boolean"))
}

// uintType is a fixed width little-endian unsigned integer.
type uintType struct {
	name string
	size int
}

func (uintType) sealed()        {}
func (t uintType) Name() string { return t.name }

func (t uintType) Skip(r *wire.Reader) error {
	_, err := r.Next(t.size, t.name)
	return err
}

func (t uintType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return dst, err
	}
	return appendKey(dst, v, t.size), nil
}

func (t uintType) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return nil, err
	}
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10), nil
	}
	return int64(v), nil
}

func (t uintType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	n, err := nativeUint(t, v)
	if err != nil {
		return dst, err
	}
	if err := checkUintRange(t, n, t.size); err != nil {
		return dst, err
	}
	return appendUint(dst, n, t.size), nil
}

func (t uintType) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, t.size) }

func (t uintType) Format(r *wire.Reader) (string, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(v, 10), nil
}

func (t uintType) Parse(dst []byte, s string) ([]byte, error) {
	n, err := strconv.ParseUint(s, 10, 8*t.size)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return appendUint(dst, n, t.size), nil
}

// intType is a fixed width little-endian two's complement integer. Its key
// flips the sign bit so that negative values sort first.
type intType struct {
	name string
	size int
}

func (intType) sealed()        {}
func (t intType) Name() string { return t.name }

func (t intType) Skip(r *wire.Reader) error {
	_, err := r.Next(t.size, t.name)
	return err
}

func (t intType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return dst, err
	}
	return appendKey(dst, v^(1<<(8*uint(t.size)-1)), t.size), nil
}

func (t intType) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return nil, err
	}
	return signExtend(v, t.size), nil
}

func (t intType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	n, err := nativeInt(t, v)
	if err != nil {
		return dst, err
	}
	if err := checkIntRange(t, n, t.size); err != nil {
		return dst, err
	}
	return appendUint(dst, uint64(n), t.size), nil
}

func (t intType) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, t.size) }

func (t intType) Format(r *wire.Reader) (string, error) {
	v, err := readUint(r, t.size, t.name)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(signExtend(v, t.size), 10), nil
}

func (t intType) Parse(dst []byte, s string) ([]byte, error) {
	n, err := strconv.ParseInt(s, 10, 8*t.size)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return appendUint(dst, uint64(n), t.size), nil
}

type varUint32Type struct{}

func (varUint32Type) sealed()      {}
func (varUint32Type) Name() string { return "varuint32" }

func (varUint32Type) Skip(r *wire.Reader) error {
	_, err := r.ReadVarUint32()
	return err
}

func (varUint32Type) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadVarUint32()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint32(dst, v), nil
}

func (varUint32Type) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := r.ReadVarUint32()
	return int64(v), err
}

func (t varUint32Type) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	n, err := nativeUint(t, v)
	if err != nil {
		return dst, err
	}
	if err := checkUintRange(t, n, 4); err != nil {
		return dst, err
	}
	return wire.AppendVarUint32(dst, uint32(n)), nil
}

func (varUint32Type) FillEmpty(dst []byte) []byte { return append(dst, 0) }

func (varUint32Type) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadVarUint32()
	return strconv.FormatUint(uint64(v), 10), err
}

func (t varUint32Type) Parse(dst []byte, s string) ([]byte, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return wire.AppendVarUint32(dst, uint32(n)), nil
}

type varInt32Type struct{}

func (varInt32Type) sealed()      {}
func (varInt32Type) Name() string { return "varint32" }

func (varInt32Type) Skip(r *wire.Reader) error {
	_, err := r.ReadVarInt32()
	return err
}

func (varInt32Type) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadVarInt32()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint32(dst, uint32(v)^0x80000000), nil
}

func (varInt32Type) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := r.ReadVarInt32()
	return int64(v), err
}

func (t varInt32Type) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	n, err := nativeInt(t, v)
	if err != nil {
		return dst, err
	}
	if err := checkIntRange(t, n, 4); err != nil {
		return dst, err
	}
	return wire.AppendVarInt32(dst, int32(n)), nil
}

func (varInt32Type) FillEmpty(dst []byte) []byte { return append(dst, 0) }

func (varInt32Type) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadVarInt32()
	return strconv.FormatInt(int64(v), 10), err
}

func (t varInt32Type) Parse(dst []byte, s string) ([]byte, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return wire.AppendVarInt32(dst, int32(n)), nil
}

// float64Type keys flip every bit of negative values and only the sign bit
// of positive ones, which orders IEEE 754 doubles numerically.
type float64Type struct{}

func (float64Type) sealed()      {}
func (float64Type) Name() string { return "float64" }

func (float64Type) Skip(r *wire.Reader) error {
	_, err := r.Next(8, "float64")
	return err
}

func (float64Type) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	bits, err := r.ReadUint64()
	if err != nil {
		return dst, err
	}
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return binary.BigEndian.AppendUint64(dst, bits), nil
}

func (float64Type) BinToNative(r *wire.Reader) (driver.Value, error) {
	bits, err := r.ReadUint64()
	return math.Float64frombits(bits), err
}

func (t float64Type) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	var f float64
	switch v := v.(type) {
	case nil:
		return t.FillEmpty(dst), nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		s, ok := nativeText(v)
		if !ok {
			return dst, errNative(t, v)
		}
		return t.Parse(dst, s)
	}
	return wire.AppendUint64(dst, math.Float64bits(f)), nil
}

func (float64Type) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, 8) }

func (float64Type) Format(r *wire.Reader) (string, error) {
	bits, err := r.ReadUint64()
	return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64), err
}

func (t float64Type) Parse(dst []byte, s string) ([]byte, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return wire.AppendUint64(dst, math.Float64bits(f)), nil
}
