// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package histql answers point-in-time queries against a chain-state
// history store. A query arrives as a compact binary request naming a query
// from the catalog, and the answer is a length-prefixed list of binary rows.
//
// Two interchangeable backends implement Database: sqldb, which calls one
// stored function per query, and boltdb, which walks ordered index keys and
// resolves joins itself.
package histql

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/molecula/histql/errors"
)

// Database is a backend chosen once per process. It hands out sessions,
// each of which owns its backend resources exclusively.
type Database interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session serves one logical request. A Session must not be used from more
// than one goroutine at a time.
type Session interface {
	// FillStatus returns the filler's current progress record.
	FillStatus(ctx context.Context) (FillStatus, error)

	// BlockID returns the id of block blockNum. The boolean is false when the
	// block is unknown.
	BlockID(ctx context.Context, blockNum uint32) (Checksum256, bool, error)

	// QueryDatabase decodes and runs the request in queryBin and returns the
	// encoded result. A requested snapshot block is clamped to head.
	QueryDatabase(ctx context.Context, queryBin []byte, head uint32) ([]byte, error)

	Close() error
}

// Checksum256 is a 256-bit content hash, used for block ids.
type Checksum256 [32]byte

func (c Checksum256) String() string {
	return hex.EncodeToString(c[:])
}

// ParseChecksum256 parses 64 hex characters.
func ParseChecksum256(s string) (Checksum256, error) {
	var c Checksum256
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, errors.WithCode(err, errors.ErrDecode, fmt.Sprintf("parsing checksum '%s'", s))
	} else if len(b) != len(c) {
		return c, errors.New(errors.ErrDecode, fmt.Sprintf("checksum '%s' has %d bytes, expected %d", s, len(b), len(c)))
	}
	copy(c[:], b)
	return c, nil
}

func (c Checksum256) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Checksum256) UnmarshalText(text []byte) error {
	v, err := ParseChecksum256(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// FillStatus is the sync progress record written by the filler.
type FillStatus struct {
	Head           uint32      `json:"head"`
	HeadID         Checksum256 `json:"head_id"`
	Irreversible   uint32      `json:"irreversible"`
	IrreversibleID Checksum256 `json:"irreversible_id"`
	First          uint32      `json:"first"`
}
