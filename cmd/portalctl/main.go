package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sekkot/portal/cmd/portalctl/cmd"
	"github.com/sekkot/portal/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	logger.Init(true, "")

	rootCmd := &cobra.Command{
		Use:          "portalctl",
		Short:        "Operator tools for the export portal",
		SilenceUsage: true,
	}

	cmd.AddDatabaseFlags(rootCmd)
	rootCmd.AddCommand(cmd.AdminCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.CatalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
