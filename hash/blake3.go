// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package hash derives stable content hashes with blake3.
package hash

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
)

// Blake3Hasher is a thread/goroutine safe way to
// obtain a blake3 cryptographic hash of input []byte.
type Blake3Hasher struct {
	hasher   *blake3.Hasher
	hasherMu sync.Mutex
}

// NewBlake3Hasher returns a new Blake3Hasher.
func NewBlake3Hasher() *Blake3Hasher {
	return &Blake3Hasher{
		hasher: blake3.New(),
	}
}

// CryptoHash writes the blake3 cryptographic hash of
// input into buffer and returns it. The caller picks the
// hash length through the size of buffer.
func (w *Blake3Hasher) CryptoHash(input []byte, buffer []byte) (outputCryptohash []byte) {
	w.hasherMu.Lock()
	w.hasher.Reset()

	// "Write implements part of the hash.Hash interface. It never returns an error."
	//  -- https://godoc.org/github.com/zeebo/blake3#Hasher.Write
	_, _ = w.hasher.Write(input)

	// "It always fills the entire buffer and never errors."
	//   -- https://godoc.org/github.com/zeebo/blake3#Digest
	_, _ = w.hasher.Digest().Read(buffer)

	w.hasherMu.Unlock()

	return buffer
}

// BlockID returns a stand-in id for block num, for stores filled from
// fixtures that do not name their block ids. The id is the blake3 hash of
// the block number in big-endian order with the number itself written over
// the first four bytes, the way chain block ids carry their height.
func (w *Blake3Hasher) BlockID(num uint32) [32]byte {
	var in [4]byte
	binary.BigEndian.PutUint32(in[:], num)
	var id [32]byte
	w.CryptoHash(in[:], id[:])
	binary.BigEndian.PutUint32(id[:4], num)
	return id
}

// Blake3sum16 allocates a new hasher on every call. It returns
// a 16 byte hash as a hexidecimal string.
func Blake3sum16(input []byte) string {
	hasher := blake3.New()

	_, _ = hasher.Write(input)
	var buf [16]byte
	_, _ = hasher.Digest().Read(buf[0:])

	return fmt.Sprintf("%x", buf)
}
