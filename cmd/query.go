// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

var Querier *ctl.QueryCommand

func newQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Querier = ctl.NewQueryCommand(stdin, stdout, stderr)
	queryCmd := &cobra.Command{
		Use:   "query [NAME]",
		Short: "Run a catalog query.",
		Long: `
Encodes a request for the named catalog query, runs it against the store and
prints the rows. Values are given in their text form: decimal integers,
RFC 3339 times, hex checksums and bytes.

With --batch, the requests are read from a YAML list instead, each entry
having the fields query, snapshot, args, first, last and max. The requests of
a batch run concurrently, each in its own session.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				Querier.Query = args[0]
			}
			return Querier.Run(context.Background())
		},
	}
	flags := queryCmd.Flags()
	ctl.BuildConfigFlags(flags, Querier.Config)
	flags.Uint32VarP(&Querier.Snapshot, "snapshot", "s", 0, "Block to read the state at, for queries which take a snapshot.")
	flags.StringSliceVarP(&Querier.Args, "arg", "a", nil, "Leading argument values, in order.")
	flags.StringSliceVar(&Querier.First, "first", nil, "Range start values, one per range field.")
	flags.StringSliceVar(&Querier.Last, "last", nil, "Range end values, one per range field.")
	flags.Uint32VarP(&Querier.Max, "max", "m", Querier.Max, "Maximum number of rows.")
	flags.Uint32Var(&Querier.Head, "head", 0, "Head block clamping the snapshot; 0 reads it from the fill status.")
	flags.StringVar(&Querier.Batch, "batch", "", "YAML file of requests to run instead.")
	flags.IntVarP(&Querier.Parallelism, "parallelism", "p", Querier.Parallelism, "Concurrent sessions of a batch.")
	flags.StringVarP(&Querier.Format, "format", "f", Querier.Format, "Output format: table, json or hex.")

	return queryCmd
}
