package cmd

import (
	"database/sql"
	"fmt"

	"github.com/sekkot/portal/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Init(dbDriver, dbConnection)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(database.DB, dbDriver); err != nil {
				return err
			}
			return printVersion(cmd, database.DB)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Init(dbDriver, dbConnection)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.MigrateDown(database.DB, dbDriver); err != nil {
				return err
			}
			return printVersion(cmd, database.DB)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Init(dbDriver, dbConnection)
			if err != nil {
				return err
			}
			defer database.Close()

			return printVersion(cmd, database.DB)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, conn *sql.DB) error {
	version, err := db.Version(conn, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
