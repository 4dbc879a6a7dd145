package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rivetbt/rivet/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rivetcfg build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Format(version.String()))
		},
	}
}
