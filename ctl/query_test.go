// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/molecula/histql/ctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuery(cfg *ctl.Config, out io.Writer) *ctl.QueryCommand {
	cmd := ctl.NewQueryCommand(nil, out, io.Discard)
	cmd.Config = cfg
	return cmd
}

func TestQueryCommand_Run(t *testing.T) {
	cfg := mustStore(t)

	t.Run("JSON", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Query = "list.accnts"
		cmd.First = []string{"alice"}
		cmd.Last = []string{"dave"}
		cmd.Format = ctl.FormatJSON
		require.NoError(t, cmd.Run(context.Background()))
		assert.JSONEq(t, `[
			{"name": "alice", "balance": "100"},
			{"name": "carol", "balance": "5"},
			{"name": "dave", "balance": "7"}
		]`, out.String())
	})

	t.Run("Absent", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Query = "profile"
		cmd.First = []string{"carol"}
		cmd.Last = []string{"carol"}
		cmd.Format = ctl.FormatJSON
		require.NoError(t, cmd.Run(context.Background()))
		assert.JSONEq(t, `[{"owner": "carol", "avatar": null, "bio": "\"no avatar\""}]`, out.String())
	})

	t.Run("Table", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Query = "balance"
		cmd.Snapshot = 15
		cmd.First = []string{"alice"}
		cmd.Last = []string{"alice"}
		require.NoError(t, cmd.Run(context.Background()))
		assert.Contains(t, out.String(), "owner")
		assert.Contains(t, out.String(), "amount")
		assert.Contains(t, out.String(), "50")
		assert.NotContains(t, out.String(), "75")
	})

	t.Run("Hex", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Query = "get.account"
		cmd.First = []string{"zed"}
		cmd.Last = []string{"zed"}
		cmd.Format = ctl.FormatHex
		require.NoError(t, cmd.Run(context.Background()))
		assert.Equal(t, "00\n", out.String())
	})

	t.Run("Head", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Query = "balance"
		cmd.Snapshot = 25
		cmd.Head = 15
		cmd.First = []string{"alice"}
		cmd.Last = []string{"alice"}
		cmd.Format = ctl.FormatJSON
		require.NoError(t, cmd.Run(context.Background()))
		assert.JSONEq(t, `[{"owner": "alice", "amount": "50"}]`, out.String())
	})

	t.Run("Batch", func(t *testing.T) {
		batch := mustWriteFile(t, t.TempDir(), "batch.yaml", `
- {query: get.account, first: [alice], last: [alice], max: 1}
- {query: balance, snapshot: 20, first: [carol], last: [carol], max: 10}
- {query: account.prof, first: [alice], last: [carol], max: 10}
`)
		var out bytes.Buffer
		cmd := newQuery(cfg, &out)
		cmd.Batch = batch
		cmd.Format = ctl.FormatJSON
		require.NoError(t, cmd.Run(context.Background()))

		parts := strings.Split(out.String(), "# ")
		require.Len(t, parts, 4)
		assert.True(t, strings.HasPrefix(parts[1], "0: get.account\n"))
		assert.Contains(t, parts[1], `"balance": "100"`)
		assert.True(t, strings.HasPrefix(parts[2], "1: balance\n"))
		assert.Contains(t, parts[2], `"amount": "3"`)
		assert.True(t, strings.HasPrefix(parts[3], "2: account.prof\n"))
		assert.Contains(t, parts[3], `"bio": "\"no avatar\""`)
	})
}

func TestQueryCommand_RunErrors(t *testing.T) {
	cfg := mustStore(t)

	for name, tt := range map[string]func(cmd *ctl.QueryCommand){
		"UnknownQuery":  func(cmd *ctl.QueryCommand) { cmd.Query = "missing" },
		"UnknownFormat": func(cmd *ctl.QueryCommand) { cmd.Query = "get.account"; cmd.Format = "xml" },
		"BadValue":      func(cmd *ctl.QueryCommand) { cmd.Query = "balance"; cmd.First = []string{"NOT A NAME"} },
		"MissingBatch": func(cmd *ctl.QueryCommand) {
			cmd.Batch = filepath.Join(t.TempDir(), "missing.yaml")
		},
	} {
		t.Run(name, func(t *testing.T) {
			cmd := newQuery(cfg, io.Discard)
			tt(cmd)
			require.Error(t, cmd.Run(context.Background()))
		})
	}
}
