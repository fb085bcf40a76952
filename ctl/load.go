// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/molecula/histql"
	"github.com/molecula/histql/boltdb"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
)

// LoadCommand writes a fixture file into a bolt store.
type LoadCommand struct {
	storeCommand

	// Path of the fixture.
	Path string
}

// NewLoadCommand returns a new instance of LoadCommand.
func NewLoadCommand(stdin io.Reader, stdout, stderr io.Writer) *LoadCommand {
	return &LoadCommand{storeCommand: newStoreCommand(stdin, stdout, stderr)}
}

func (cmd *LoadCommand) Run(ctx context.Context) error {
	if cmd.Config.Backend != BackendBolt {
		return errors.New(errors.ErrBackend, fmt.Sprintf("load writes bolt stores only, backend is '%s'", cmd.Config.Backend))
	}
	return cmd.withStore(ctx, true, func(ctx context.Context, db histql.Database, _ *catalog.Catalog) error {
		return db.(*boltdb.DB).LoadFixtureFile(ctx, cmd.Path)
	})
}
