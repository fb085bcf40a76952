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

// BoltKeysCommand prints the raw entries of a bolt store.
type BoltKeysCommand struct {
	storeCommand

	// Buckets to print. Empty means every bucket.
	Buckets []string

	// Hexa prints keys and values in hex rather than as quoted text.
	Hexa bool
}

// NewBoltKeysCommand returns a new instance of BoltKeysCommand.
func NewBoltKeysCommand(stdin io.Reader, stdout, stderr io.Writer) *BoltKeysCommand {
	return &BoltKeysCommand{storeCommand: newStoreCommand(stdin, stdout, stderr)}
}

func (cmd *BoltKeysCommand) Run(ctx context.Context) error {
	if cmd.Config.Backend != BackendBolt {
		return errors.New(errors.ErrBackend, fmt.Sprintf("bolt keys reads bolt stores only, backend is '%s'", cmd.Config.Backend))
	}
	buckets := cmd.Buckets
	if len(buckets) == 0 {
		buckets = boltdb.BucketNames
	}
	return cmd.withStore(ctx, false, func(ctx context.Context, db histql.Database, _ *catalog.Catalog) error {
		return db.(*boltdb.DB).Walk(ctx, buckets, func(bucket string, k, v []byte) error {
			var err error
			if cmd.Hexa {
				_, err = fmt.Fprintf(cmd.Stdout, "%s key=%x, value=%x\n", bucket, k, v)
			} else {
				_, err = fmt.Fprintf(cmd.Stdout, "%s key=%q, value=%q\n", bucket, k, v)
			}
			return err
		})
	})
}
