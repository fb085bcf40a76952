// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/molecula/histql/cmd"
	"github.com/molecula/histql/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execNewRootCommand executes the root command with the given arguments and
// returns what it writes to stdout.
func execNewRootCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rc := cmd.NewRootCommand(nil, &out, io.Discard)
	rc.SetArgs(args)
	err := rc.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	outStr, err := execNewRootCommand(t, "--help")
	require.NoError(t, err)
	if !strings.Contains(outStr, "Usage:") ||
		!strings.Contains(outStr, "Available Commands:") ||
		!strings.Contains(outStr, "--help") {
		t.Fatalf("Expected standard usage message from RootCommand, but got: %s", outStr)
	}
	for _, sub := range []string{"query", "status", "block-id", "load", "catalog", "config"} {
		assert.Contains(t, outStr, sub)
	}
}

func TestRootCommand_Config(t *testing.T) {
	t.Run("Env", func(t *testing.T) {
		t.Setenv("HISTQL_BACKEND", "postgres")
		t.Setenv("HISTQL_SCHEMA", "history")
		out, err := execNewRootCommand(t, "config", "--dsn", "postgres://db/chain")
		require.NoError(t, err)
		assert.Contains(t, out, `backend = "postgres"`)
		assert.Contains(t, out, `schema = "history"`)
		assert.Contains(t, out, `dsn = "postgres://db/chain"`)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "histql.toml")
		require.NoError(t, os.WriteFile(path, []byte("backend = \"mysql\"\ntimeout = \"5s\"\n"), 0600))

		// Flags win over the config file.
		out, err := execNewRootCommand(t, "config", "--config", path, "--timeout", "10s")
		require.NoError(t, err)
		assert.Contains(t, out, `backend = "mysql"`)
		assert.Contains(t, out, `timeout = "10s"`)
	})

	t.Run("InvalidOption", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "histql.toml")
		require.NoError(t, os.WriteFile(path, []byte("bogus = 1\n"), 0600))
		_, err := execNewRootCommand(t, "config", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid option in configuration file: bogus")
	})
}

func TestRootCommand_Query(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	fixturePath := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(test.Catalog), 0600))
	require.NoError(t, os.WriteFile(fixturePath, []byte(test.Fixture), 0600))
	dsn := "file:" + filepath.Join(dir, "histql.db")

	_, err := execNewRootCommand(t, "load", fixturePath, "--dsn", dsn, "--catalog", catalogPath)
	require.NoError(t, err)

	out, err := execNewRootCommand(t, "query", "account.bal", "--dsn", dsn, "--catalog", catalogPath,
		"--snapshot", "25", "--first", "alice", "--last", "carol", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name": "alice", "balance": "100", "amount": "75"},
		{"name": "carol", "balance": "5", "amount": "3"}
	]`, out)

	out, err = execNewRootCommand(t, "block-id", "30", "--dsn", dsn, "--catalog", catalogPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0000001e"))

	_, err = execNewRootCommand(t, "block-id", "x", "--dsn", dsn, "--catalog", catalogPath)
	require.Error(t, err)
}

func TestRootCommand_DryRun(t *testing.T) {
	_, err := execNewRootCommand(t, "status", "--dry-run")
	require.EqualError(t, err, "dry run")
}
