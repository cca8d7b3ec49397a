package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/identity/internal/identity/app"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Apply migrations, start the HTTP API and the expired-code cleanup worker, and block until SIGINT or SIGTERM.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "initialize application").Wrap(err)
	}

	if err := application.Run(); err != nil {
		return oops.Code("SERVER_FAILED").Wrap(err)
	}
	return nil
}
