package main

import (
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/identity/internal/identity/app"
)

// NewRootCmd creates the root command. Every config key is a persistent
// flag so subcommands share one loader.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Identity service: sign-in, one-time codes and session tokens",
		Long: `identity authenticates principals by email and password, mails a
one-time code to elevated accounts, and issues HS256 access and refresh tokens.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML config file path")
	app.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPrincipalCmd())
	cmd.AddCommand(NewSecretCmd())

	return cmd
}

// loadConfig reads the config for cmd from its inherited flags.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return app.Config{}, err
	}
	return app.LoadConfig(cmd.Flags(), path)
}
