// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
)

// StatusCommand prints the store's fill status as JSON.
type StatusCommand struct {
	storeCommand
}

// NewStatusCommand returns a new instance of StatusCommand.
func NewStatusCommand(stdin io.Reader, stdout, stderr io.Writer) *StatusCommand {
	return &StatusCommand{storeCommand: newStoreCommand(stdin, stdout, stderr)}
}

func (cmd *StatusCommand) Run(ctx context.Context) error {
	return cmd.withStore(ctx, false, func(ctx context.Context, db histql.Database, _ *catalog.Catalog) error {
		return withSession(ctx, db, func(s histql.Session) error {
			fs, err := s.FillStatus(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(fs)
		})
	})
}

// BlockIDCommand prints the id of one block.
type BlockIDCommand struct {
	storeCommand

	BlockNum uint32
}

// NewBlockIDCommand returns a new instance of BlockIDCommand.
func NewBlockIDCommand(stdin io.Reader, stdout, stderr io.Writer) *BlockIDCommand {
	return &BlockIDCommand{storeCommand: newStoreCommand(stdin, stdout, stderr)}
}

// Run prints the block id in hex. An unknown block is an error.
func (cmd *BlockIDCommand) Run(ctx context.Context) error {
	return cmd.withStore(ctx, false, func(ctx context.Context, db histql.Database, _ *catalog.Catalog) error {
		return withSession(ctx, db, func(s histql.Session) error {
			id, ok, err := s.BlockID(ctx, cmd.BlockNum)
			if err != nil {
				return err
			} else if !ok {
				return errors.Errorf("block %d is unknown", cmd.BlockNum)
			}
			fmt.Fprintln(cmd.Stdout, id)
			return nil
		})
	})
}
