package main

import (
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/identity/internal/identity/app"
	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
)

// NewPrincipalCmd groups principal administration.
func NewPrincipalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals",
	}
	cmd.AddCommand(newPrincipalCreateCmd())
	return cmd
}

func newPrincipalCreateCmd() *cobra.Command {
	var in struct {
		email, password, firstName, lastName, role string
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a principal",
		Long: `Create a principal with a hashed password. When --password is omitted a
random one is generated and printed once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := domain.ParseRole(in.role)
			if err != nil {
				return oops.Code("INVALID_ROLE").Wrap(err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
			}
			if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
				return oops.Code("PEPPER_FAILED").With("path", cfg.PepperFile).Wrap(err)
			}

			generated := false
			if in.password == "" {
				if in.password, err = cryptox.GeneratePassword(); err != nil {
					return oops.Code("PASSWORD_FAILED").Wrap(err)
				}
				generated = true
			}

			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer st.Close()
			if err := st.ApplyMigrations(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}

			v, err := service.CreatePrincipal(cmd.Context(), st, service.NewPrincipal{
				Email:     in.email,
				Password:  in.password,
				FirstName: in.firstName,
				LastName:  in.lastName,
				Role:      role,
			})
			switch {
			case errors.Is(err, service.ErrEmailRegistered):
				return oops.Code("ALREADY_EXISTS").With("email", in.email).Wrap(err)
			case errors.Is(err, service.ErrInternal):
				return oops.Code("CREATE_FAILED").Wrap(err)
			case err != nil:
				return oops.Code("INVALID_PRINCIPAL").Wrap(err)
			}

			cmd.Printf("Created %s principal %s (%s)\n", v.Role, v.Email, v.ID)
			if generated {
				cmd.Printf("Generated password: %s\n", in.password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.password, "password", "", "password; generated when empty")
	cmd.Flags().StringVar(&in.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.role, "role", string(domain.RoleStandard), "role: user, staff or admin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
