// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb

import (
	"context"
	"fmt"
	"os"

	"github.com/molecula/histql"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/hash"
	"sigs.k8s.io/yaml"
)

// Fixture is a store's contents written out as text, for seeding a store
// without running a filler.
//
//	fill_status: {head: 30, irreversible: 20, first: 1}
//	blocks:
//	  - num: 10
//	rows:
//	  - table: balances
//	    block: 10
//	    values: {owner: alice, amount: "50"}
//
// Blocks without an id get one derived from their number, and the fill
// status takes its ids from the head and irreversible blocks.
type Fixture struct {
	FillStatus *FixtureStatus `json:"fill_status,omitempty"`
	Blocks     []FixtureBlock `json:"blocks,omitempty"`
	Rows       []FixtureRow   `json:"rows,omitempty"`
}

type FixtureStatus struct {
	Head         uint32 `json:"head"`
	Irreversible uint32 `json:"irreversible"`
	First        uint32 `json:"first"`
}

type FixtureBlock struct {
	Num uint32              `json:"num"`
	ID  *histql.Checksum256 `json:"id,omitempty"`
}

type FixtureRow struct {
	Table  string            `json:"table"`
	Block  uint32            `json:"block,omitempty"`
	Delete bool              `json:"delete,omitempty"`
	Values map[string]string `json:"values"`
}

// ParseFixture decodes a YAML fixture, rejecting unknown keys.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.WithCode(err, errors.ErrDecode, "parsing fixture")
	}
	return &f, nil
}

// LoadFixtureFile reads the fixture at path into db.
func (db *DB) LoadFixtureFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading fixture %s", path)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return errors.Wrap(err, path)
	}
	return db.LoadFixture(ctx, f)
}

// LoadFixture writes f in a single transaction.
func (db *DB) LoadFixture(ctx context.Context, f *Fixture) error {
	hasher := hash.NewBlake3Hasher()
	ids := make(map[uint32]histql.Checksum256, len(f.Blocks))
	blockID := func(num uint32) histql.Checksum256 {
		if id, ok := ids[num]; ok {
			return id
		}
		return hasher.BlockID(num)
	}

	return db.Update(ctx, func(w *Writer) error {
		for _, b := range f.Blocks {
			id := blockID(b.Num)
			if b.ID != nil {
				id = *b.ID
			}
			ids[b.Num] = id
			if err := w.SetBlockID(b.Num, id); err != nil {
				return err
			}
		}

		for i, fr := range f.Rows {
			t, err := db.catalog.Table(fr.Table)
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
			row, err := t.EncodeRow(fr.Values)
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
			if fr.Delete {
				err = w.DeleteRow(t, fr.Block, row)
			} else {
				err = w.PutRow(t, fr.Block, row)
			}
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
		}

		if fs := f.FillStatus; fs != nil {
			if fs.Irreversible > fs.Head {
				return errors.New(errors.ErrDecode, fmt.Sprintf("fill status: irreversible block %d is past head %d", fs.Irreversible, fs.Head))
			}
			err := w.SetFillStatus(histql.FillStatus{
				Head:           fs.Head,
				HeadID:         blockID(fs.Head),
				Irreversible:   fs.Irreversible,
				IrreversibleID: blockID(fs.Irreversible),
				First:          fs.First,
			})
			if err != nil {
				return err
			}
		}
		db.logger.Infof("loaded %d blocks and %d rows into %s", len(f.Blocks), len(f.Rows), db.filePath)
		return nil
	})
}
