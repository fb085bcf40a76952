// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/ctl"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T) *catalog.Catalog {
	return test.MustCatalog(t)
}

func TestCatalogCommand_Run(t *testing.T) {
	var out bytes.Buffer
	cmd := ctl.NewCatalogCommand(nil, &out, io.Discard)
	cmd.Path = mustWriteFile(t, t.TempDir(), "catalog.yaml", test.Catalog)
	l := logger.NewBufferLogger()
	cmd.SetLogger(l)
	require.NoError(t, cmd.Run(context.Background()))

	for _, s := range []string{"account.bal", "account_with_balance", "balances_by_owner", "string,uint32", "owner,avatar,bio"} {
		assert.Contains(t, out.String(), s)
	}
	assert.Contains(t, l.String(), "catalog "+cmd.Path+" is valid, fingerprint ")
}

func TestCatalogCommand_RunInvalid(t *testing.T) {
	cmd := ctl.NewCatalogCommand(nil, io.Discard, io.Discard)
	cmd.Path = mustWriteFile(t, t.TempDir(), "catalog.yaml", "tables: [{name: t, short_name: t, fields: []}]\nbogus: 1\n")
	require.Error(t, cmd.Run(context.Background()))
}
