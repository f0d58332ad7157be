package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-registrar-api/pkg/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), rt.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck
			return database.RunMigrations(db.DB, rt.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), rt.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck
			return database.RollbackMigrations(db.DB, steps, rt.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), rt.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck
			v, dirty, err := database.SchemaVersion(db.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
