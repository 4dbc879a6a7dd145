package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rivetbt/rivet/internal/config/store"
)

const defaultTokenTTL = 15 * time.Minute

func tokenIssue(cmd *cobra.Command, _ []string) error {
	ttl, _ := cmd.Flags().GetDuration("ttl")
	issuedBy, _ := cmd.Flags().GetString("issued-by")

	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	token, err := st.IssueSetupToken(cmd.Context(), issuedBy, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Setup token (valid for %s, shown once):\n%s\n", ttl, token)
	return nil
}

func tokenConsume(cmd *cobra.Command, args []string) error {
	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.ConsumeSetupToken(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, store.ErrSetupTokenInvalid) {
			return fmt.Errorf("token rejected: expired, already used, or unknown")
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Token accepted; instance is now active.")
	return nil
}
