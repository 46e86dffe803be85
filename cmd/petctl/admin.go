package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/adoption-service/internal/app"
	"github.com/spec-kit/adoption-service/internal/service"
)

func createAdminCmd() *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		Long: `Create an admin account or promote an existing one.

An existing account keeps its password unless --password is given.

Examples:
  petctl create-admin --email admin@example.com --password s3cret --name "Shelter Admin"
  petctl create-admin --email staff@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Email == "" {
				return fmt.Errorf("--email is required")
			}
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			repos := app.NewRepositories(e.pg)
			authService := service.NewAuthService(*e.cfg, repos.Users, e.logger)
			user, created, err := authService.EnsureAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s: %s (%s)\n", verb, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "admin email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (required when creating)")
	cmd.Flags().StringVar(&in.FullName, "name", "Administrator", "full name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	return cmd
}
