// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"
)

// Output formats for query results.
const (
	FormatHex   = "hex"
	FormatTable = "table"
	FormatJSON  = "json"
)

// nullValue stands in for the fields of an absent optional block.
const nullValue = "NULL"

// BatchRequest is one entry of a batch file.
type BatchRequest struct {
	Query    string   `json:"query"`
	Snapshot uint32   `json:"snapshot,omitempty"`
	Args     []string `json:"args,omitempty"`
	First    []string `json:"first,omitempty"`
	Last     []string `json:"last,omitempty"`
	Max      uint32   `json:"max"`
}

// QueryCommand runs catalog queries and prints their results.
type QueryCommand struct {
	storeCommand

	// The request, unless Batch is set.
	BatchRequest

	// Head clamps snapshots. Zero means the head block of the fill status.
	Head uint32

	// Batch is the path of a YAML list of BatchRequests. The requests run
	// concurrently, each in its own session.
	Batch string

	// Parallelism caps the number of concurrent sessions of a batch.
	Parallelism int

	// Format is one of "hex", "table" or "json".
	Format string
}

// NewQueryCommand returns a new instance of QueryCommand.
func NewQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *QueryCommand {
	return &QueryCommand{
		storeCommand: newStoreCommand(stdin, stdout, stderr),
		BatchRequest: BatchRequest{Max: 100},
		Parallelism:  4,
		Format:       FormatTable,
	}
}

type queryResult struct {
	query  *catalog.Query
	result []byte
}

// Run executes the request or the batch.
func (cmd *QueryCommand) Run(ctx context.Context) error {
	switch cmd.Format {
	case FormatHex, FormatTable, FormatJSON:
	default:
		return errors.Errorf("unknown format '%s'", cmd.Format)
	}

	reqs := []BatchRequest{cmd.BatchRequest}
	if cmd.Batch != "" {
		var err error
		if reqs, err = readBatch(cmd.Batch); err != nil {
			return err
		}
	}

	return cmd.withStore(ctx, false, func(ctx context.Context, db histql.Database, cat *catalog.Catalog) error {
		encoded := make([]queryResult, len(reqs))
		for i, req := range reqs {
			q, buf, err := encodeRequest(cat, req)
			if err != nil {
				return errors.Wrapf(err, "request %d", i)
			}
			encoded[i] = queryResult{query: q, result: buf}
		}

		head := cmd.Head
		if head == 0 {
			err := withSession(ctx, db, func(s histql.Session) error {
				fs, err := s.FillStatus(ctx)
				head = fs.Head
				return err
			})
			if err != nil {
				return errors.Wrap(err, "reading head block")
			}
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(max(cmd.Parallelism, 1))
		for i := range encoded {
			i := i
			g.Go(func() error {
				return withSession(ctx, db, func(s histql.Session) error {
					result, err := s.QueryDatabase(ctx, encoded[i].result, head)
					if err != nil {
						return errors.Wrapf(err, "query '%s'", encoded[i].query.Name)
					}
					encoded[i].result = result
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, r := range encoded {
			if len(encoded) > 1 {
				fmt.Fprintf(cmd.Stdout, "# %d: %s\n", i, r.query.Name)
			}
			if err := cmd.write(r); err != nil {
				return err
			}
		}
		return nil
	})
}

func readBatch(path string) ([]BatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading batch %s", path)
	}
	var reqs []BatchRequest
	if err := yaml.UnmarshalStrict(data, &reqs); err != nil {
		return nil, errors.WithCode(err, errors.ErrDecode, "parsing batch "+path)
	}
	return reqs, nil
}

func encodeRequest(cat *catalog.Catalog, req BatchRequest) (*catalog.Query, []byte, error) {
	name, err := wire.ParseName(req.Query)
	if err != nil {
		return nil, nil, err
	}
	q, err := cat.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	buf, err := q.EncodeRequest(catalog.Request{
		Snapshot:   req.Snapshot,
		Args:       req.Args,
		First:      req.First,
		Last:       req.Last,
		MaxResults: req.Max,
	})
	return q, buf, err
}

// write prints one result in the command's format.
func (cmd *QueryCommand) write(r queryResult) error {
	if cmd.Format == FormatHex {
		_, err := fmt.Fprintln(cmd.Stdout, hex.EncodeToString(r.result))
		return err
	}

	rows, err := wire.DecodeResult(r.result)
	if err != nil {
		return errors.Wrap(err, "decoding result")
	}
	fields := r.query.ResultFields

	if cmd.Format == FormatJSON {
		out := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			cells, err := catalog.FormatRow(fields, row)
			if err != nil {
				return err
			}
			obj := make(map[string]interface{}, len(cells))
			for _, c := range cells {
				obj[c.Field.Name] = nil
				if c.Present {
					obj[c.Field.Name] = c.Text
				}
			}
			out = append(out, obj)
		}
		enc := json.NewEncoder(cmd.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	t.AppendHeader(header)
	for _, row := range rows {
		cells, err := catalog.FormatRow(fields, row)
		if err != nil {
			return err
		}
		tr := make(table.Row, len(cells))
		for i, c := range cells {
			tr[i] = nullValue
			if c.Present {
				tr[i] = c.Text
			}
		}
		t.AppendRow(tr)
	}
	t.Render()
	return nil
}
