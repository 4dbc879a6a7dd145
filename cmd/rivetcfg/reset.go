package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func factoryReset(cmd *cobra.Command, _ []string) error {
	confirmed, _ := cmd.Flags().GetBool("yes")
	if !confirmed {
		return fmt.Errorf("factory reset wipes all configuration; re-run with --yes to confirm")
	}

	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.FactoryReset(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to factory defaults.")
	return nil
}
