package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridflow/gridflow/internal/engine"
	"github.com/gridflow/gridflow/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gridflow %s\ncommit: %s\nbuilt: %s\nengine: %s (contract v%d)\n",
				version, commit, date, engine.Version, protocol.ContractVersion)
			return nil
		},
	}

	return cmd
}
