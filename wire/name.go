// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package wire

import (
	"fmt"
	"strings"

	"github.com/molecula/histql/errors"
)

// Name is a chain name: up to 13 characters from ".12345a-z" packed into a
// uint64, 5 bits per character for the first 12 and 4 bits for the last.
// Query names are Names, which makes them a fixed-width tag on the wire.
type Name uint64

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

func charToSymbol(c byte) (uint64, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6, true
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1, true
	case c == '.':
		return 0, true
	}
	return 0, false
}

// ParseName converts s to a Name. It fails for characters outside the name
// alphabet, strings longer than 13 characters, and strings which would not
// survive a round trip (such as trailing dots).
func ParseName(s string) (Name, error) {
	if len(s) > 13 {
		return 0, errors.New(errors.ErrDecode, fmt.Sprintf("name '%s' is longer than 13 characters", s))
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c, ok := charToSymbol(s[i])
		if !ok {
			return 0, errors.New(errors.ErrDecode, fmt.Sprintf("name '%s' contains invalid character %q", s, s[i]))
		}
		if i < 12 {
			v |= (c & 0x1f) << (64 - 5*uint(i+1))
		} else {
			if c > 0x0f {
				return 0, errors.New(errors.ErrDecode, fmt.Sprintf("name '%s' has an invalid 13th character", s))
			}
			v |= c & 0x0f
		}
	}
	n := Name(v)
	if n.String() != s {
		return 0, errors.New(errors.ErrDecode, fmt.Sprintf("name '%s' is not in canonical form", s))
	}
	return n, nil
}

// MustParseName is like ParseName but panics on error. Intended for
// constants and tests.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	var out [13]byte
	tmp := uint64(n)
	for i := 0; i <= 12; i++ {
		if i == 0 {
			out[12-i] = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			out[12-i] = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
	}
	return strings.TrimRight(string(out[:]), ".")
}

// MarshalText lets names appear as strings in JSON and YAML documents.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	v, err := ParseName(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
