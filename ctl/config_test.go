// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/molecula/histql/ctl"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/toml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand_Run(t *testing.T) {
	var out bytes.Buffer
	cm := ctl.NewConfigCommand(nil, &out, io.Discard)
	cm.Config.Backend = ctl.BackendMySQL

	require.NoError(t, cm.Run(context.Background()))
	assert.Contains(t, out.String(), `backend = "mysql"`)
	assert.Contains(t, out.String(), `timeout = "30s"`)
	assert.Contains(t, out.String(), `schema = "chain"`)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, ctl.NewConfig().Validate())

	cfg := ctl.NewConfig()
	cfg.Backend = "oracle"
	require.True(t, errors.Is(cfg.Validate(), errors.ErrBackend))

	cfg = ctl.NewConfig()
	cfg.Tracer = "zipkin"
	require.Error(t, cfg.Validate())

	cfg = ctl.NewConfig()
	cfg.Timeout = 0
	require.Error(t, cfg.Validate())
}

func TestBuildConfigFlags(t *testing.T) {
	cfg := ctl.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	ctl.BuildConfigFlags(flags, cfg)
	require.NoError(t, flags.Parse([]string{"-b", "postgres", "--dsn", "postgres://localhost/chain", "--timeout", "5s", "-v"}))

	assert.Equal(t, ctl.BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://localhost/chain", cfg.DSN)
	assert.Equal(t, toml.Duration(5*time.Second), cfg.Timeout)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "catalog.yaml", cfg.Catalog)
}

func TestConfig_Open(t *testing.T) {
	cat := mustCatalog(t)

	cfg := ctl.NewConfig()
	cfg.DSN = "histql.db"
	_, err := cfg.Open(context.Background(), cat, nil, false)
	require.True(t, errors.Is(err, errors.ErrBackend))

	cfg = ctl.NewConfig()
	cfg.Backend = ctl.BackendPostgres
	_, err = cfg.Open(context.Background(), cat, nil, true)
	require.True(t, errors.Is(err, errors.ErrBackend))
}
