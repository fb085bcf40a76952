// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"
	"strconv"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

var Statuser *ctl.StatusCommand

func newStatusCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Statuser = ctl.NewStatusCommand(stdin, stdout, stderr)
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the store's fill status.",
		Long: `
Prints the head and irreversible blocks of the store, their ids, and the first
block it holds, as JSON.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Statuser.Run(context.Background())
		},
	}
	ctl.BuildConfigFlags(statusCmd.Flags(), Statuser.Config)
	return statusCmd
}

var BlockIDer *ctl.BlockIDCommand

func newBlockIDCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	BlockIDer = ctl.NewBlockIDCommand(stdin, stdout, stderr)
	blockIDCmd := &cobra.Command{
		Use:   "block-id NUM",
		Short: "Print the id of a block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			num, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return err
			}
			BlockIDer.BlockNum = uint32(num)
			return BlockIDer.Run(context.Background())
		},
	}
	ctl.BuildConfigFlags(blockIDCmd.Flags(), BlockIDer.Config)
	return blockIDCmd
}
