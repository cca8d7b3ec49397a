package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/identity/pkg/cryptox"
)

// NewSecretCmd groups secret helpers.
func NewSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Secret helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a random 256-bit secret suitable for access_secret or refresh_secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return oops.Code("SECRET_FAILED").Wrap(err)
			}
			cmd.Println(s)
			return nil
		},
	})
	return cmd
}
