// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/stretchr/testify/require"
)

// cellTexts renders cells as "name=text", or "name" alone when absent.
func cellTexts(cells []catalog.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Field.Name
		if c.Present {
			out[i] += "=" + c.Text
		}
	}
	return out
}

func TestTable_EncodeRow(t *testing.T) {
	c := mustParse(t, testCatalog)
	profiles, err := c.Table("profiles")
	require.NoError(t, err)
	avatar := strings.Repeat("ab", 32)

	for name, tt := range map[string]struct {
		values map[string]string
		exp    []string
	}{
		"Present": {
			values: map[string]string{"owner": "alice", "avatar": avatar, "bio": "hi"},
			exp:    []string{"owner=alice", "avatar=" + avatar, `bio="hi"`},
		},
		"Absent": {
			values: map[string]string{"owner": "carol", "bio": ""},
			exp:    []string{"owner=carol", "avatar", `bio=""`},
		},
	} {
		t.Run(name, func(t *testing.T) {
			row, err := profiles.EncodeRow(tt.values)
			require.NoError(t, err)
			cells, err := catalog.FormatRow(profiles.Fields, row)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.exp, cellTexts(cells)); diff != "" {
				t.Fatalf("unexpected cells (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("UnknownField", func(t *testing.T) {
		_, err := profiles.EncodeRow(map[string]string{"owner": "alice", "bio": "", "age": "3"})
		require.True(t, errors.Is(err, errors.ErrSchema))
	})

	t.Run("MissingField", func(t *testing.T) {
		_, err := profiles.EncodeRow(map[string]string{"owner": "alice"})
		require.True(t, errors.Is(err, errors.ErrDecode))
	})

	t.Run("MissingLastField", func(t *testing.T) {
		accounts, err := c.Table("accounts")
		require.NoError(t, err)
		_, err = accounts.EncodeRow(map[string]string{"name": "alice"})
		require.True(t, errors.Is(err, errors.ErrDecode))
	})
}

func TestFormatRow_TrailingBytes(t *testing.T) {
	c := mustParse(t, testCatalog)
	accounts, err := c.Table("accounts")
	require.NoError(t, err)
	row, err := accounts.EncodeRow(map[string]string{"name": "alice", "balance": "1"})
	require.NoError(t, err)

	_, err = catalog.FormatRow(accounts.Fields, append(row, 0))
	require.True(t, errors.Is(err, errors.ErrDecode))
	require.Contains(t, err.Error(), "1 unexpected bytes after row")
	_, err = catalog.FormatRow(accounts.Fields, row[:len(row)-1])
	require.Error(t, err)
}
