// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb_test

import (
	"context"
	"testing"

	"github.com/molecula/histql"
	"github.com/molecula/histql/boltdb"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/hash"
	"github.com/molecula/histql/test"
	"github.com/molecula/histql/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSession(t *testing.T, db *boltdb.DB) histql.Session {
	t.Helper()
	s, err := db.NewSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestSession_QueryDatabase(t *testing.T) {
	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, test.Fixture)
	s := mustSession(t, db)
	ctx := context.Background()

	query := func(t *testing.T, name string, req catalog.Request, head uint32) [][]string {
		t.Helper()
		result, err := s.QueryDatabase(ctx, test.MustRequest(t, c, name, req), head)
		require.NoError(t, err)
		return test.MustRows(t, c, name, result)
	}
	only := func(first ...string) catalog.Request {
		return catalog.Request{First: first, MaxResults: 100}
	}

	t.Run("Found", func(t *testing.T) {
		assert.Equal(t, [][]string{{"alice", "100"}}, query(t, "get.account", only("alice"), 40))
	})

	t.Run("RenamedFields", func(t *testing.T) {
		assert.Equal(t, [][]string{{"alice", "100"}}, query(t, "acct.renamed", only("alice"), 40))
	})

	t.Run("NotFound", func(t *testing.T) {
		result, err := s.QueryDatabase(ctx, test.MustRequest(t, c, "get.account", only("bob")), 40)
		require.NoError(t, err)
		assert.Equal(t, []byte{0}, result)
	})

	t.Run("Snapshot", func(t *testing.T) {
		for _, tt := range []struct {
			snapshot uint32
			head     uint32
			exp      [][]string
		}{
			{snapshot: 5, head: 40, exp: [][]string{}},
			{snapshot: 15, head: 40, exp: [][]string{{"alice", "50"}}},
			{snapshot: 20, head: 40, exp: [][]string{{"alice", "75"}}},
			{snapshot: 25, head: 40, exp: [][]string{{"alice", "75"}}},
			{snapshot: 115, head: 15, exp: [][]string{{"alice", "50"}}},
		} {
			req := catalog.Request{Snapshot: tt.snapshot, First: []string{"alice"}, MaxResults: 10}
			assert.Equal(t, tt.exp, query(t, "balance", req, tt.head), "snapshot %d head %d", tt.snapshot, tt.head)
		}
	})

	t.Run("Deleted", func(t *testing.T) {
		req := catalog.Request{Snapshot: 25, First: []string{"carol"}, MaxResults: 10}
		assert.Equal(t, [][]string{{"carol", "3"}}, query(t, "balance", req, 40))
		req.Snapshot = 30
		assert.Empty(t, query(t, "balance", req, 40))
	})

	t.Run("Range", func(t *testing.T) {
		req := catalog.Request{First: []string{"carol"}, Last: []string{"dave"}, MaxResults: 10}
		assert.Equal(t, [][]string{{"carol", "5"}, {"dave", "7"}}, query(t, "list.accnts", req, 40))

		// Range across every delta owner, newest version of each.
		req = catalog.Request{Snapshot: 25, First: []string{"a"}, Last: []string{"zzzzzzzzzzzz"}, MaxResults: 10}
		assert.Equal(t, [][]string{{"alice", "75"}, {"carol", "3"}}, query(t, "balance", req, 40))
	})

	t.Run("MaxResults", func(t *testing.T) {
		req := catalog.Request{First: []string{"alice"}, Last: []string{"erin"}, MaxResults: 100}
		assert.Equal(t, [][]string{{"alice", "100"}, {"carol", "5"}, {"dave", "7"}}, query(t, "list.accnts", req, 40))

		req.MaxResults = 2
		assert.Equal(t, [][]string{{"alice", "100"}, {"carol", "5"}}, query(t, "list.accnts", req, 40))

		req.MaxResults = 0
		result, err := s.QueryDatabase(ctx, test.MustRequest(t, c, "list.accnts", req), 40)
		require.NoError(t, err)
		assert.Equal(t, []byte{0}, result)
	})

	t.Run("Join", func(t *testing.T) {
		req := catalog.Request{Snapshot: 15, First: []string{"alice"}, Last: []string{"erin"}, MaxResults: 10}
		assert.Equal(t, [][]string{
			{"alice", "100", "50"},
			{"carol", "5", "0"},
			{"dave", "7", "0"},
			{"erin", "9", "0"},
		}, query(t, "account.bal", req, 40))

		assert.Equal(t, [][]string{{"alice", "100", "75"}, {"carol", "5", "3"}}, query(t, "account.bal", catalog.Request{Snapshot: 25, First: []string{"alice"}, Last: []string{"carol"}, MaxResults: 10}, 40))

		assert.Equal(t, [][]string{{"carol", "5", "0"}}, query(t, "account.bal", catalog.Request{Snapshot: 35, First: []string{"carol"}, MaxResults: 10}, 40))
	})

	t.Run("JoinMissing", func(t *testing.T) {
		assert.Equal(t, [][]string{{"alice", "100", `"hello"`}}, query(t, "account.prof", only("alice"), 40))
		assert.Equal(t, [][]string{{"dave", "7", `""`}}, query(t, "account.prof", only("dave"), 40))
	})

	t.Run("Optional", func(t *testing.T) {
		assert.Equal(t, [][]string{{"alice", test.Avatar, `"hello"`}}, query(t, "profile", only("alice"), 40))
		assert.Equal(t, [][]string{{"carol", "-", `"no avatar"`}}, query(t, "profile", only("carol"), 40))
	})
}

func TestSession_QueryDatabaseErrors(t *testing.T) {
	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, test.Fixture)
	s := mustSession(t, db)
	ctx := context.Background()

	req := test.MustRequest(t, c, "get.account", catalog.Request{First: []string{"alice"}, MaxResults: 1})

	t.Run("UnknownQuery", func(t *testing.T) {
		buf := wire.AppendName(nil, wire.MustParseName("nope"))
		_, err := s.QueryDatabase(ctx, buf, 40)
		assert.True(t, errors.Is(err, errors.ErrSchema), "%v", err)
	})

	t.Run("ArgTypes", func(t *testing.T) {
		buf := test.MustRequest(t, c, "search", catalog.Request{Args: []string{"x", "1"}, First: []string{"alice"}, MaxResults: 1})
		_, err := s.QueryDatabase(ctx, buf, 40)
		assert.True(t, errors.Is(err, errors.ErrUnsupportedQuery), "%v", err)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := s.QueryDatabase(ctx, req[:len(req)-1], 40)
		assert.True(t, errors.Is(err, errors.ErrDecode), "%v", err)

		_, err = s.QueryDatabase(ctx, req[:3], 40)
		assert.True(t, errors.Is(err, errors.ErrDecode), "%v", err)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		_, err := s.QueryDatabase(ctx, append(append([]byte(nil), req...), 0), 40)
		assert.True(t, errors.Is(err, errors.ErrDecode), "%v", err)
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.QueryDatabase(ctx, req, 40)
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, errors.Is(err, errors.ErrBackend), "%v", err)
	})

	t.Run("ResultFields", func(t *testing.T) {
		buf := test.MustRequest(t, c, "only.bal", catalog.Request{First: []string{"alice"}, MaxResults: 1})
		_, err := s.QueryDatabase(ctx, buf, 40)
		assert.True(t, errors.Is(err, errors.ErrUnsupportedQuery), "%v", err)
	})
}

func TestSession_FillStatus(t *testing.T) {
	c := test.MustCatalog(t)
	hasher := hash.NewBlake3Hasher()

	t.Run("Present", func(t *testing.T) {
		s := mustSession(t, test.MustOpenBoltDB(t, c, test.Fixture))
		fs, err := s.FillStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, histql.FillStatus{
			Head:           40,
			HeadID:         hasher.BlockID(40),
			Irreversible:   30,
			IrreversibleID: hasher.BlockID(30),
			First:          1,
		}, fs)
	})

	t.Run("Missing", func(t *testing.T) {
		s := mustSession(t, test.MustOpenBoltDB(t, c, ""))
		_, err := s.FillStatus(context.Background())
		assert.True(t, errors.Is(err, errors.ErrBackend), "%v", err)
	})
}

func TestSession_BlockID(t *testing.T) {
	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, test.Fixture)
	s := mustSession(t, db)

	id, ok, err := s.BlockID(context.Background(), 20)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, histql.Checksum256(hash.NewBlake3Hasher().BlockID(20)), id)

	_, ok, err = s.BlockID(context.Background(), 21)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Ensure sessions opened after a write see it.
func TestSession_AfterUpdate(t *testing.T) {
	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, test.Fixture)
	ctx := context.Background()

	before, err := db.NewSession(ctx)
	require.NoError(t, err)
	fs, err := before.FillStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), fs.Head)
	require.NoError(t, before.Close())

	require.NoError(t, db.Update(ctx, func(w *boltdb.Writer) error {
		return w.SetFillStatus(histql.FillStatus{Head: 50, Irreversible: 40, First: 1})
	}))

	after := mustSession(t, db)
	fs, err = after.FillStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), fs.Head)
}

func TestDB_ReadOnly(t *testing.T) {
	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, test.Fixture)
	require.NoError(t, db.Close())

	ro := boltdb.NewDB("file:"+db.Path(), c, boltdb.OptDBReadOnly(true))
	require.NoError(t, ro.Open())
	t.Cleanup(func() { require.NoError(t, ro.Close()) })

	s := mustSession(t, ro)
	result, err := s.QueryDatabase(context.Background(), test.MustRequest(t, c, "get.account", catalog.Request{First: []string{"erin"}, MaxResults: 1}), 40)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"erin", "9"}}, test.MustRows(t, c, "get.account", result))

	err = ro.Update(context.Background(), func(w *boltdb.Writer) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrBackend), "%v", err)
}

func TestParseFixture(t *testing.T) {
	_, err := boltdb.ParseFixture([]byte("rows: [{table: accounts, colour: red}]"))
	assert.True(t, errors.Is(err, errors.ErrDecode), "%v", err)

	c := test.MustCatalog(t)
	db := test.MustOpenBoltDB(t, c, "")
	f, err := boltdb.ParseFixture([]byte("rows: [{table: accounts, values: {name: alice}}]"))
	require.NoError(t, err)
	err = db.LoadFixture(context.Background(), f)
	assert.True(t, errors.Is(err, errors.ErrDecode), "%v", err)
}
