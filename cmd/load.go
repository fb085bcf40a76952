// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

var Loader *ctl.LoadCommand

func newLoadCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Loader = ctl.NewLoadCommand(stdin, stdout, stderr)
	loadCmd := &cobra.Command{
		Use:   "load FIXTURE",
		Short: "Write a YAML fixture into a bolt store.",
		Long: `
Writes the fill status, block ids and rows of a YAML fixture into a bolt
store, creating it if needed. Row values are given by field name in their
text form. Rows of delta tables are versioned by their block.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			Loader.Path = args[0]
			return Loader.Run(context.Background())
		},
	}
	ctl.BuildConfigFlags(loadCmd.Flags(), Loader.Config)
	return loadCmd
}
