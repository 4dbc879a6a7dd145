// rivetcfg manages the rivet configuration database: engine profile,
// tracker configuration, secrets and setup tokens.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rivetbt/rivet/internal/config"
	"github.com/rivetbt/rivet/internal/config/store"
	"github.com/rivetbt/rivet/internal/profile"
)

var (
	rootCmd *cobra.Command
	log     zerolog.Logger
)

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.GetRivetHome())
	viper.SetEnvPrefix("rivet")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("db-path", "")
	viper.SetDefault("log-level", "info")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "rivetcfg: read config: %v\n", err)
		}
	}

	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func openService() (*profile.Service, func(), error) {
	st, err := store.Open(store.Options{DBPath: viper.GetString("db-path")})
	if err != nil {
		return nil, nil, err
	}
	return profile.New(st, log), func() { st.Close() }, nil
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(store.Options{DBPath: viper.GetString("db-path")})
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd = &cobra.Command{
		Use:           "rivetcfg",
		Short:         "Manage rivet engine configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("db", "", "Override configuration database path")
	viper.BindPFlag("db-path", rootCmd.PersistentFlags().Lookup("db"))

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and update the engine profile",
	}
	profileShowCmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the engine profile and tracker configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          profileShow,
	}
	profileShowCmd.Flags().Bool("effective", false, "Apply guard rails and include warnings")
	profileApplyCmd := &cobra.Command{
		Use:           "apply",
		Short:         "Apply a full profile document (scalars plus tracker payload)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          profileApply,
	}
	profileApplyCmd.Flags().String("file", "", "Path to the profile JSON document")
	profileApplyCmd.MarkFlagRequired("file")
	profileCmd.AddCommand(profileShowCmd, profileApplyCmd)

	trackerCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Inspect and update the tracker configuration",
	}
	trackerShowCmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the canonical tracker configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          trackerShow,
	}
	trackerSetCmd := &cobra.Command{
		Use:           "set",
		Short:         "Validate, normalize and store a tracker payload",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          trackerSet,
	}
	trackerSetCmd.Flags().String("file", "", "Path to the tracker JSON document")
	trackerSetCmd.MarkFlagRequired("file")
	trackerCmd.AddCommand(trackerShowCmd, trackerSetCmd)

	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage named secrets referenced by the configuration",
	}
	secretSetCmd := &cobra.Command{
		Use:           "set <name>",
		Short:         "Store a secret (value read from stdin)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          secretSet,
	}
	secretRmCmd := &cobra.Command{
		Use:           "rm <name>",
		Short:         "Delete a secret",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          secretRemove,
	}
	secretListCmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored secret names",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          secretList,
	}
	secretCmd.AddCommand(secretSetCmd, secretRmCmd, secretListCmd)

	tokenCmd := &cobra.Command{
		Use:   "setup-token",
		Short: "Manage single-use provisioning tokens",
	}
	tokenIssueCmd := &cobra.Command{
		Use:           "issue",
		Short:         "Issue a new setup token (invalidates prior tokens)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          tokenIssue,
	}
	tokenIssueCmd.Flags().Duration("ttl", defaultTokenTTL, "Token validity window")
	tokenIssueCmd.Flags().String("issued-by", "rivetcfg", "Record who requested the token")
	tokenConsumeCmd := &cobra.Command{
		Use:           "consume <token>",
		Short:         "Consume a setup token and activate the instance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          tokenConsume,
	}
	tokenCmd.AddCommand(tokenIssueCmd, tokenConsumeCmd)

	resetCmd := &cobra.Command{
		Use:           "factory-reset",
		Short:         "Wipe all configuration and restore seed defaults",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          factoryReset,
	}
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")

	rootCmd.AddCommand(profileCmd, trackerCmd, secretCmd, tokenCmd, resetCmd, newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
