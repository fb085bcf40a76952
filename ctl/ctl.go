// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package ctl implements the histql commands. Each command is a struct whose
// exported fields are its options, run with Run.
package ctl

import (
	"context"
	"io"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
)

// storeCommand is embedded by the commands which open a store.
type storeCommand struct {
	*histql.CmdIO
	Config *Config
}

func newStoreCommand(stdin io.Reader, stdout, stderr io.Writer) storeCommand {
	return storeCommand{
		CmdIO:  histql.NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
}

// withStore loads the catalog, opens the store and calls fn within the
// configured timeout.
func (cmd *storeCommand) withStore(ctx context.Context, writable bool, fn func(ctx context.Context, db histql.Database, cat *catalog.Catalog) error) error {
	if err := cmd.Config.Validate(); err != nil {
		return err
	}
	l := cmd.Config.Logger(cmd.Stderr)
	cmd.SetLogger(l)
	cmd.Config.SetupTracing(l)

	ctx, cancel := context.WithTimeout(ctx, cmd.Config.Timeout.Duration())
	defer cancel()

	cat, err := cmd.Config.LoadCatalog()
	if err != nil {
		return errors.Wrap(err, "loading catalog")
	}
	db, err := cmd.Config.Open(ctx, cat, l, writable)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Errorf("closing store: %v", err)
		}
	}()
	return fn(ctx, db, cat)
}

// withSession runs fn in a new session of db.
func withSession(ctx context.Context, db histql.Database, fn func(s histql.Session) error) error {
	s, err := db.NewSession(ctx)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	defer s.Close()
	return fn(s)
}
