// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/molecula/histql/ctl"
	"github.com/molecula/histql/test"
	"github.com/stretchr/testify/require"
)

// mustStore writes the test catalog and loads the test fixture into a new
// bolt store, returning a config pointing at both.
func mustStore(t *testing.T) *ctl.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := ctl.NewConfig()
	cfg.DSN = "file:" + filepath.Join(dir, "histql.db")
	cfg.Catalog = mustWriteFile(t, dir, "catalog.yaml", test.Catalog)

	load := ctl.NewLoadCommand(nil, io.Discard, io.Discard)
	load.Config = cfg
	load.Path = mustWriteFile(t, dir, "fixture.yaml", test.Fixture)
	require.NoError(t, load.Run(context.Background()))
	return cfg
}

func mustWriteFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestLoadCommand_Backend(t *testing.T) {
	load := ctl.NewLoadCommand(nil, io.Discard, io.Discard)
	load.Config.Backend = ctl.BackendPostgres
	require.Error(t, load.Run(context.Background()))
}

func TestStatusCommand_Run(t *testing.T) {
	cfg := mustStore(t)
	var out bytes.Buffer
	cmd := ctl.NewStatusCommand(nil, &out, io.Discard)
	cmd.Config = cfg
	require.NoError(t, cmd.Run(context.Background()))
	require.Contains(t, out.String(), `"head": 40`)
	require.Contains(t, out.String(), `"irreversible": 30`)
	require.Contains(t, out.String(), `"first": 1`)
}

func TestBlockIDCommand_Run(t *testing.T) {
	cfg := mustStore(t)

	var out bytes.Buffer
	cmd := ctl.NewBlockIDCommand(nil, &out, io.Discard)
	cmd.Config = cfg
	cmd.BlockNum = 20
	require.NoError(t, cmd.Run(context.Background()))
	// Fixture block ids carry the block number in their first four bytes.
	require.Regexp(t, `^00000014[0-9a-f]{56}\n$`, out.String())

	cmd.BlockNum = 21
	require.Error(t, cmd.Run(context.Background()))
}

func TestBoltKeysCommand_Run(t *testing.T) {
	cfg := mustStore(t)

	var out bytes.Buffer
	cmd := ctl.NewBoltKeysCommand(nil, &out, io.Discard)
	cmd.Config = cfg
	cmd.Buckets = []string{"blocks"}
	cmd.Hexa = true
	require.NoError(t, cmd.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "blocks key=0000000a, value=0000000a"))
	require.True(t, strings.HasPrefix(lines[2], "blocks key=0000001e, value=0000001e"))

	out.Reset()
	cmd.Buckets = nil
	cmd.Hexa = false
	require.NoError(t, cmd.Run(context.Background()))
	require.Contains(t, out.String(), `status key="fill_status"`)
	require.Contains(t, out.String(), "indexes key=")
	require.Contains(t, out.String(), "rows key=")
}
