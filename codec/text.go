// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// appendEscaped appends the order preserving key form of b: every 0x00 is
// written as 0x00 0xff and the value ends with 0x00 0x00, so a value sorts
// before any longer value it prefixes.
func appendEscaped(dst []byte, b []byte) []byte {
	for _, c := range b {
		if c == 0 {
			dst = append(dst, 0, 0xff)
			continue
		}
		dst = append(dst, c)
	}
	return append(dst, 0, 0)
}

type nameType struct{}

func (nameType) sealed()      {}
func (nameType) Name() string { return "name" }

func (nameType) Skip(r *wire.Reader) error {
	_, err := r.Next(8, "name")
	return err
}

func (nameType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	n, err := r.ReadName()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint64(dst, uint64(n)), nil
}

func (nameType) BinToNative(r *wire.Reader) (driver.Value, error) {
	n, err := r.ReadName()
	if err != nil {
		return nil, err
	}
	return n.String(), nil
}

func (t nameType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	s, ok := nativeText(v)
	if !ok {
		return dst, errNative(t, v)
	}
	return t.Parse(dst, s)
}

func (nameType) FillEmpty(dst []byte) []byte { return wire.AppendName(dst, 0) }

func (nameType) Format(r *wire.Reader) (string, error) {
	n, err := r.ReadName()
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func (t nameType) Parse(dst []byte, s string) ([]byte, error) {
	n, err := wire.ParseName(s)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return wire.AppendName(dst, n), nil
}

type stringType struct{}

func (stringType) sealed()      {}
func (stringType) Name() string { return "string" }

func (stringType) Skip(r *wire.Reader) error {
	_, err := r.ReadBytes()
	return err
}

func (stringType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return dst, err
	}
	return appendEscaped(dst, b), nil
}

func (stringType) BinToNative(r *wire.Reader) (driver.Value, error) {
	s, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t stringType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	s, ok := nativeText(v)
	if !ok {
		return dst, errNative(t, v)
	}
	return wire.AppendString(dst, s)
}

func (stringType) FillEmpty(dst []byte) []byte { return append(dst, 0) }

func (stringType) Format(r *wire.Reader) (string, error) {
	s, err := r.ReadString()
	if err != nil {
		return "", err
	}
	return strconv.Quote(s), nil
}

func (stringType) Parse(dst []byte, s string) ([]byte, error) {
	return wire.AppendString(dst, s)
}

type bytesType struct{}

func (bytesType) sealed()      {}
func (bytesType) Name() string { return "bytes" }

func (bytesType) Skip(r *wire.Reader) error {
	_, err := r.ReadBytes()
	return err
}

func (bytesType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return dst, err
	}
	return appendEscaped(dst, b), nil
}

func (bytesType) BinToNative(r *wire.Reader) (driver.Value, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (t bytesType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return t.FillEmpty(dst), nil
	case []byte:
		return wire.AppendBytes(dst, v)
	case string:
		return wire.AppendString(dst, v)
	}
	return dst, errNative(t, v)
}

func (bytesType) FillEmpty(dst []byte) []byte { return append(dst, 0) }

func (bytesType) Format(r *wire.Reader) (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (t bytesType) Parse(dst []byte, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	return wire.AppendBytes(dst, b)
}

const checksum256Size = 32

// checksum256Type is a raw 32 byte digest. Backends see it as lowercase hex.
type checksum256Type struct{}

func (checksum256Type) sealed()      {}
func (checksum256Type) Name() string { return "checksum256" }

func (checksum256Type) Skip(r *wire.Reader) error {
	_, err := r.Next(checksum256Size, "checksum256")
	return err
}

func (checksum256Type) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	b, err := r.Next(checksum256Size, "checksum256")
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

func (checksum256Type) BinToNative(r *wire.Reader) (driver.Value, error) {
	b, err := r.Next(checksum256Size, "checksum256")
	if err != nil {
		return nil, err
	}
	return hex.EncodeToString(b), nil
}

// NativeToBin accepts the raw digest or its hex text. A 32 byte slice is
// taken as raw, anything else as text.
func (t checksum256Type) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return t.FillEmpty(dst), nil
	case []byte:
		if len(v) == checksum256Size {
			return append(dst, v...), nil
		}
		return t.Parse(dst, string(v))
	case string:
		return t.Parse(dst, v)
	}
	return dst, errNative(t, v)
}

func (checksum256Type) FillEmpty(dst []byte) []byte {
	return append(dst, make([]byte, checksum256Size)...)
}

func (checksum256Type) Format(r *wire.Reader) (string, error) {
	b, err := r.Next(checksum256Size, "checksum256")
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (t checksum256Type) Parse(dst []byte, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return dst, errParse(t, s, err)
	}
	if len(b) != checksum256Size {
		return dst, errors.New(errors.ErrDecode, fmt.Sprintf("checksum256: expected %d bytes, got %d", checksum256Size, len(b)))
	}
	return append(dst, b...), nil
}
