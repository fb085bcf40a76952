// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package codec defines the fixed set of field types a catalog may declare.
// Each type converts one wire value into sortable key bytes, into a backend
// parameter, back from a backend column value, and knows its empty value.
package codec

import (
	"database/sql/driver"
	"fmt"
	"sort"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// Type is the behavior shared by every field declared with the same type
// name. Types are stateless and safe for concurrent use.
type Type interface {
	// Name is the type name used in catalog documents.
	Name() string

	// Skip advances r past one value.
	Skip(r *wire.Reader) error

	// BinToKey consumes one value from r and appends its key encoding to dst.
	// Key encodings compare with bytes.Compare in the type's natural order.
	BinToKey(dst []byte, r *wire.Reader) ([]byte, error)

	// BinToNative consumes one value from r and returns it as a database/sql
	// parameter.
	BinToNative(r *wire.Reader) (driver.Value, error)

	// NativeToBin appends the wire encoding of a value scanned from a
	// backend column. A nil value encodes as the empty value.
	NativeToBin(dst []byte, v interface{}) ([]byte, error)

	// FillEmpty appends the type's empty value.
	FillEmpty(dst []byte) []byte

	// Format consumes one value from r and renders it as text.
	Format(r *wire.Reader) (string, error)

	// Parse appends the wire encoding of a value given as text.
	Parse(dst []byte, s string) ([]byte, error)

	sealed()
}

var types = map[string]Type{}

func register(t Type) {
	types[t.Name()] = t
}

func init() {
	register(boolType{})
	for _, t := range []uintType{{"uint8", 1}, {"uint16", 2}, {"uint32", 4}, {"uint64", 8}} {
		register(t)
	}
	for _, t := range []intType{{"int8", 1}, {"int16", 2}, {"int32", 4}, {"int64", 8}} {
		register(t)
	}
	register(varUint32Type{})
	register(varInt32Type{})
	register(float64Type{})
	register(nameType{})
	register(stringType{})
	register(bytesType{})
	register(checksum256Type{})
	register(timePointType{})
	register(timePointSecType{})
	register(blockTimestampType{})
}

// Lookup returns the type registered under name.
func Lookup(name string) (Type, error) {
	t, ok := types[name]
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("unknown field type '%s'", name))
	}
	return t, nil
}

// MustLookup is like Lookup but panics on error.
func MustLookup(name string) Type {
	t, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns every registered type name in sorted order.
func Names() []string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BinToBin consumes one value of type t from r and appends its wire bytes to
// dst unchanged.
func BinToBin(t Type, dst []byte, r *wire.Reader) ([]byte, error) {
	start := r.Pos()
	if err := t.Skip(r); err != nil {
		return dst, err
	}
	return append(dst, r.Since(start)...), nil
}

func errNative(t Type, v interface{}) error {
	return errors.New(errors.ErrDecode, fmt.Sprintf("%s: cannot convert backend value of type %T", t.Name(), v))
}

func errParse(t Type, s string, err error) error {
	return errors.WithCode(err, errors.ErrDecode, fmt.Sprintf("%s: parsing '%s'", t.Name(), s))
}

// nativeText returns v as text for the drivers which hand back numerics and
// strings as []byte.
func nativeText(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}
