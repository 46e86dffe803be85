package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/adoption-service/internal/persistence"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateStatusCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := persistence.RunMigrations(cmd.Context(), e.pg.PoolHandle(), e.logger); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			state, err := persistence.MigrationStatus(e.pg.PoolHandle())
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %d\n", state.Version)
			fmt.Fprintf(out, "latest:  %d\n", state.Latest)
			fmt.Fprintf(out, "dirty:   %t\n", state.Dirty)
			if state.Pending() {
				fmt.Fprintln(out, "pending migrations: run `petctl migrate up`")
			}
			return nil
		},
	}
}
