// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

var Conf *ctl.ConfigCommand

func newConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Conf = ctl.NewConfigCommand(stdin, stdout, stderr)
	confCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the current configuration.",
		Long: `config prints the configuration, after applying flags, environment and
config file, to stdout
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Conf.Run(context.Background())
		},
	}
	ctl.BuildConfigFlags(confCmd.Flags(), Conf.Config)
	return confCmd
}
