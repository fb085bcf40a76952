// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb

import (
	"bytes"
	"testing"

	"github.com/molecula/histql"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockSuffixOrder(t *testing.T) {
	sub := indexPrefix(wire.MustParseName("balance"), wire.MustParseName("owner"))
	v10 := appendBlockSuffix(append([]byte(nil), sub...), 10)
	v20 := appendBlockSuffix(append([]byte(nil), sub...), 20)

	// Newer versions sort first, and every version sorts before afterSubkey.
	assert.Equal(t, -1, bytes.Compare(v20, v10))
	assert.Equal(t, -1, bytes.Compare(v10, afterSubkey(sub)))
	assert.Equal(t, -1, bytes.Compare(appendBlockSuffix(append([]byte(nil), sub...), 0), afterSubkey(sub)))

	got, err := subkey(v10, true)
	require.NoError(t, err)
	assert.Equal(t, sub, got)

	_, err = subkey([]byte{1, 2}, true)
	assert.True(t, errors.Is(err, errors.ErrBackend))
}

func TestInRange(t *testing.T) {
	last := []byte{1, 2}
	assert.True(t, inRange([]byte{1, 2, 9, 9}, last))
	assert.True(t, inRange([]byte{1, 1, 0xff}, last))
	assert.False(t, inRange([]byte{1, 3}, last))
}

func TestFillStatusEncoding(t *testing.T) {
	fs := histql.FillStatus{Head: 40, Irreversible: 30, First: 1}
	fs.HeadID[0] = 0xab
	fs.IrreversibleID[31] = 0xcd

	buf := encodeFillStatus(fs)
	assert.Len(t, buf, 76)
	got, err := decodeFillStatus(buf)
	require.NoError(t, err)
	assert.Equal(t, fs, got)

	_, err = decodeFillStatus(buf[:75])
	assert.True(t, errors.Is(err, errors.ErrDecode))
}
