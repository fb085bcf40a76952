// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/hash"
)

// CatalogCommand validates a catalog document and lists its queries.
type CatalogCommand struct {
	*histql.CmdIO

	// Path of the catalog document.
	Path string
}

// NewCatalogCommand returns a new instance of CatalogCommand.
func NewCatalogCommand(stdin io.Reader, stdout, stderr io.Writer) *CatalogCommand {
	return &CatalogCommand{CmdIO: histql.NewCmdIO(stdin, stdout, stderr)}
}

func (cmd *CatalogCommand) Run(_ context.Context) error {
	data, err := os.ReadFile(cmd.Path)
	if err != nil {
		return errors.Wrap(err, "reading catalog")
	}
	cat, err := catalog.Parse(data)
	if err != nil {
		return errors.Wrapf(err, "loading catalog '%s'", cmd.Path)
	}
	cmd.Logger().Infof("catalog %s is valid, fingerprint %s", cmd.Path, hash.Blake3sum16(data))

	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"query", "function", "table", "index", "join", "snapshot", "args", "max", "result"})
	for _, q := range cat.Queries() {
		args := make([]string, len(q.ArgTypes))
		for i, a := range q.ArgTypes {
			args[i] = a.Name()
		}
		fields := make([]string, len(q.ResultFields))
		for i, f := range q.ResultFields {
			fields[i] = f.Name
		}
		join := ""
		if q.Join != nil {
			join = q.Join.Table.Name
		}
		t.AppendRow(table.Row{
			q.Name.String(),
			q.Function,
			q.Table.Name,
			q.Index.Name,
			join,
			q.HasBlockSnapshot,
			strings.Join(args, ","),
			q.MaxResults,
			strings.Join(fields, ","),
		})
	}
	t.Render()
	return nil
}
