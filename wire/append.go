// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package wire

import (
	"encoding/binary"
	"math"

	"github.com/molecula/histql/errors"
)

func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func AppendUint16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func AppendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func AppendUint64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func AppendName(dst []byte, n Name) []byte {
	return AppendUint64(dst, uint64(n))
}

func AppendVarUint32(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func AppendVarInt32(dst []byte, v int32) []byte {
	return AppendVarUint32(dst, uint32((v<<1)^(v>>31)))
}

// AppendBytes appends b prefixed with its varuint32 length.
func AppendBytes(dst []byte, b []byte) ([]byte, error) {
	if err := CheckLen(len(b), "byte string"); err != nil {
		return dst, err
	}
	dst = AppendVarUint32(dst, uint32(len(b)))
	return append(dst, b...), nil
}

func AppendString(dst []byte, s string) ([]byte, error) {
	if err := CheckLen(len(s), "string"); err != nil {
		return dst, err
	}
	dst = AppendVarUint32(dst, uint32(len(s)))
	return append(dst, s...), nil
}

// CheckLen returns an OverflowError if n cannot be represented as a 32-bit
// length.
func CheckLen(n int, what string) error {
	if uint64(n) > math.MaxUint32 {
		return errors.New(errors.ErrOverflow, what+" is too big")
	}
	return nil
}
