// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package test holds the catalog, store fixture and helpers shared by the
// backend and command tests.
package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/molecula/histql/boltdb"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/wire"
	"github.com/stretchr/testify/require"
)

// Catalog declares a plain table, a delta table and a table with an
// optional block, and queries over each of them. acct.renamed and only.bal
// carry their own result_fields.
const Catalog = `
tables:
- name: accounts
  short_name: account
  fields:
  - {name: name, type: name}
  - {name: balance, type: uint64}
- name: balances
  short_name: balance
  delta: true
  fields:
  - {name: owner, type: name}
  - {name: amount, type: uint64}
- name: profiles
  short_name: profile
  fields:
  - {name: owner, type: name}
  - {name: avatar, type: checksum256, begin_optional: true, end_optional: true}
  - {name: bio, type: string}
indexes:
- {name: accounts_by_name, table: accounts, short_name: name, range_fields: [name]}
- {name: balances_by_owner, table: balances, short_name: owner, range_fields: [owner]}
- {name: profiles_by_owner, table: profiles, short_name: owner, range_fields: [owner]}
queries:
- name: get.account
  function: get_account
  index: accounts_by_name
  max_results: 1
- name: list.accnts
  function: list_accounts
  index: accounts_by_name
  max_results: 3
- name: balance
  function: balance_at
  index: balances_by_owner
  has_block_snapshot: true
  max_results: 10
- name: account.bal
  function: account_with_balance
  index: accounts_by_name
  has_block_snapshot: true
  max_results: 10
  join:
    table: balances
    index: balances_by_owner
    key_fields: [name]
    fields: [amount]
- name: account.prof
  function: account_with_profile
  index: accounts_by_name
  max_results: 100
  join:
    table: profiles
    index: profiles_by_owner
    key_fields: [name]
    fields: [bio]
- name: profile
  function: get_profile
  index: profiles_by_owner
  max_results: 10
- name: acct.renamed
  function: accounts_renamed
  index: accounts_by_name
  max_results: 10
  result_fields:
  - {name: who, type: name}
  - {name: amount, type: uint64}
- name: only.bal
  function: only_balance
  index: accounts_by_name
  max_results: 10
  result_fields:
  - {name: balance, type: uint64}
- name: search
  function: search_accounts
  index: accounts_by_name
  arg_types: [string, uint32]
  max_results: 5
`

// Avatar is alice's avatar in Fixture.
const Avatar = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

// Fixture fills the tables of Catalog. Alice's balance is 50 from block 10
// and 75 from block 20. Carol's is 3 from block 20 until it is deleted at
// block 30. Carol's profile has no avatar.
const Fixture = `
fill_status: {head: 40, irreversible: 30, first: 1}
blocks:
- num: 10
- num: 20
- num: 30
rows:
- {table: accounts, values: {name: alice, balance: "100"}}
- {table: accounts, values: {name: carol, balance: "5"}}
- {table: accounts, values: {name: dave, balance: "7"}}
- {table: accounts, values: {name: erin, balance: "9"}}
- {table: balances, block: 10, values: {owner: alice, amount: "50"}}
- {table: balances, block: 20, values: {owner: alice, amount: "75"}}
- {table: balances, block: 20, values: {owner: carol, amount: "3"}}
- {table: balances, block: 30, delete: true, values: {owner: carol, amount: "3"}}
- {table: profiles, values: {owner: alice, avatar: ` + Avatar + `, bio: hello}}
- {table: profiles, values: {owner: carol, bio: no avatar}}
`

// MustCatalog parses Catalog.
func MustCatalog(tb testing.TB) *catalog.Catalog {
	tb.Helper()
	c, err := catalog.Parse([]byte(Catalog))
	require.NoError(tb, err)
	return c
}

// MustOpenBoltDB opens a store in a temporary directory and loads fixture
// into it, unless fixture is empty. The store is closed when the test ends.
func MustOpenBoltDB(tb testing.TB, c *catalog.Catalog, fixture string, opts ...boltdb.DBOption) *boltdb.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "histql.db")
	opts = append([]boltdb.DBOption{boltdb.OptDBLogger(logger.NewLogfLogger(tb))}, opts...)
	db := boltdb.NewDB("file:"+path, c, opts...)
	require.NoError(tb, db.Open())
	tb.Cleanup(func() {
		if err := db.Close(); err != nil {
			tb.Logf("closing store: %v", err)
		}
	})

	if fixture != "" {
		f, err := boltdb.ParseFixture([]byte(fixture))
		require.NoError(tb, err)
		require.NoError(tb, db.LoadFixture(context.Background(), f))
	}
	return db
}

// MustRequest encodes req for the query named name.
func MustRequest(tb testing.TB, c *catalog.Catalog, name string, req catalog.Request) []byte {
	tb.Helper()
	q, err := c.Lookup(wire.MustParseName(name))
	require.NoError(tb, err)
	buf, err := q.EncodeRequest(req)
	require.NoError(tb, err)
	return buf
}

// MustRows decodes a result into rows rendered as text, one string per
// column, with absent columns rendered as "-".
func MustRows(tb testing.TB, c *catalog.Catalog, name string, result []byte) [][]string {
	tb.Helper()
	q, err := c.Lookup(wire.MustParseName(name))
	require.NoError(tb, err)
	rows, err := wire.DecodeResult(result)
	require.NoError(tb, err)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells, err := catalog.FormatRow(q.ResultFields, row)
		require.NoError(tb, err)
		texts := make([]string, len(cells))
		for i, cell := range cells {
			texts[i] = "-"
			if cell.Present {
				texts[i] = cell.Text
			}
		}
		out = append(out, texts)
	}
	return out
}
