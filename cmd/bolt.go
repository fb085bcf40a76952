// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

func newBoltCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bolt",
		Short: "Inspect bolt stores.",
		Long: `
Provides a set of commands for inspecting bolt stores.
`,
	}
	cmd.AddCommand(newBoltKeysCommand(stdin, stdout, stderr))
	return cmd
}

func newBoltKeysCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewBoltKeysCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "keys [flags]",
		Short: "Print the entries of a bolt store.",
		Long: `
Prints every entry of the indexes, rows, status and blocks buckets, or of the
buckets named with --bucket, in key order.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(context.Background())
		},
	}

	flags := cmd.Flags()
	ctl.BuildConfigFlags(flags, c.Config)
	flags.StringSliceVar(&c.Buckets, "bucket", nil, "Buckets to print (default all)")
	flags.BoolVar(&c.Hexa, "hexa", false, "Print hexadecimal rather than quoted text")

	return cmd
}
