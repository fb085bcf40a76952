// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/molecula/histql/ctl"
	"github.com/spf13/cobra"
)

var Cataloger *ctl.CatalogCommand

func newCatalogCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Cataloger = ctl.NewCatalogCommand(stdin, stdout, stderr)
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate a catalog document and list its queries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Cataloger.Run(context.Background())
		},
	}
	catalogCmd.Flags().StringVar(&Cataloger.Path, "catalog", "catalog.yaml", "Path of the catalog document (YAML or JSON).")
	return catalogCmd
}
