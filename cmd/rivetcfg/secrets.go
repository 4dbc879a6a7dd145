package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func secretSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	reader := bufio.NewReader(cmd.InOrStdin())
	value, err := reader.ReadString('\n')
	if err != nil && value == "" {
		return fmt.Errorf("read secret value: %w", err)
	}
	value = strings.TrimRight(value, "\r\n")
	if value == "" {
		return fmt.Errorf("secret value must not be empty")
	}

	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.SetSecret(cmd.Context(), name, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Secret %q stored.\n", name)
	return nil
}

func secretRemove(cmd *cobra.Command, args []string) error {
	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.DeleteSecret(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Secret %q removed.\n", args[0])
	return nil
}

func secretList(cmd *cobra.Command, _ []string) error {
	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	names, err := st.SecretNames(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No secrets stored.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
