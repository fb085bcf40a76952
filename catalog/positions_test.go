// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog_test

import (
	"testing"

	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/codec"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields() []*catalog.Field {
	return []*catalog.Field{
		{Name: "id", Type: codec.MustLookup("uint32"), Ordinal: 0},
		{Name: "a", Type: codec.MustLookup("uint8"), Ordinal: 1, BeginOptional: true},
		{Name: "b", Type: codec.MustLookup("string"), Ordinal: 2, EndOptional: true},
		{Name: "c", Type: codec.MustLookup("uint16"), Ordinal: 3},
	}
}

func TestScanPositions(t *testing.T) {
	fields := testFields()

	t.Run("Present", func(t *testing.T) {
		row := wire.AppendUint32(nil, 7)
		row = wire.AppendBool(row, true)
		row = append(row, 9)
		row, _ = wire.AppendString(row, "xy")
		row = wire.AppendUint16(row, 300)

		pos, err := catalog.ScanPositions(fields, row)
		require.NoError(t, err)
		assert.Equal(t, catalog.Positions{0, 5, 6, 9}, pos)
		assert.True(t, pos.Has(fields))

		got, err := pos.AppendValues(nil, row, []*catalog.Field{fields[3], fields[2]})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x2c, 0x01, 2, 'x', 'y'}, got)

		key, err := pos.AppendKeys(nil, row, []*catalog.Field{fields[0], fields[3]})
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 7, 0x01, 0x2c}, key)
	})

	t.Run("Absent", func(t *testing.T) {
		row := wire.AppendUint32(nil, 7)
		row = wire.AppendBool(row, false)
		row = wire.AppendUint16(row, 300)

		pos, err := catalog.ScanPositions(fields, row)
		require.NoError(t, err)
		assert.Equal(t, catalog.Positions{0, catalog.Absent, catalog.Absent, 5}, pos)
		assert.False(t, pos.Has(fields[1:2]))
		assert.True(t, pos.Has([]*catalog.Field{fields[0], fields[3]}))

		_, err = pos.AppendKeys(nil, row, fields[1:2])
		assert.True(t, errors.Is(err, errors.ErrDecode))

		got, err := pos.AppendValues(nil, row, fields[1:3])
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0}, got)
	})

	t.Run("Truncated", func(t *testing.T) {
		row := wire.AppendUint32(nil, 7)
		row = wire.AppendBool(row, true)

		_, err := catalog.ScanPositions(fields, row)
		assert.True(t, errors.Is(err, errors.ErrDecode))
	})
}

func TestFillEmpty(t *testing.T) {
	got := catalog.FillEmpty([]byte{1}, testFields())
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0}, got)
}
