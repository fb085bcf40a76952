// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog

import (
	"fmt"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// EncodeRow builds the wire form of a row of t from text values keyed by
// field name. An optional block is present when any of its fields has a
// value, and then every field of the block needs one.
func (t *Table) EncodeRow(values map[string]string) ([]byte, error) {
	for name := range values {
		if _, err := t.Field(name); err != nil {
			return nil, err
		}
	}

	var buf []byte
	var err error
	for i := 0; i < len(t.Fields); i++ {
		f := t.Fields[i]
		if f.BeginOptional {
			end := blockEnd(t.Fields, i)
			present := false
			for _, g := range t.Fields[i : end+1] {
				if _, ok := values[g.Name]; ok {
					present = true
				}
			}
			buf = wire.AppendBool(buf, present)
			if !present {
				i = end
				continue
			}
		}
		v, ok := values[f.Name]
		if !ok {
			return nil, errors.New(errors.ErrDecode, fmt.Sprintf("table '%s': no value for field '%s'", t.Name, f.Name))
		}
		if buf, err = f.Type.Parse(buf, v); err != nil {
			return nil, errors.Wrapf(err, "field '%s'", f.Name)
		}
	}
	return buf, nil
}

// blockEnd returns the index of the field closing the optional block which
// opens at fields[begin].
func blockEnd(fields []*Field, begin int) int {
	for i := begin; i < len(fields); i++ {
		if fields[i].EndOptional {
			return i
		}
	}
	return len(fields) - 1
}

// Cell is one formatted column of a result row.
type Cell struct {
	Field   *Field
	Text    string
	Present bool
}

// FormatRow renders a row laid out as fields. Fields of an absent optional
// block come back with Present unset.
func FormatRow(fields []*Field, row []byte) ([]Cell, error) {
	cells := make([]Cell, len(fields))
	r := wire.NewReader(row)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f.BeginOptional {
			present, err := r.ReadBool()
			if err != nil {
				return nil, err
			}
			if !present {
				end := blockEnd(fields, i)
				for ; i <= end; i++ {
					cells[i] = Cell{Field: fields[i]}
				}
				i = end
				continue
			}
		}
		text, err := f.Type.Format(r)
		if err != nil {
			return nil, errors.Wrapf(err, "field '%s'", f.Name)
		}
		cells[i] = Cell{Field: f, Text: text, Present: true}
	}
	if n := r.Len(); n > 0 {
		return nil, errors.New(errors.ErrDecode, fmt.Sprintf("%d unexpected bytes after row", n))
	}
	return cells, nil
}
