package cmd

import (
	"fmt"
	"os"

	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/spf13/cobra"
)

func CatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Product catalog tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import products from the first sheet of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			catalog := service.NewCatalogService(
				repository.NewProductRepository(database),
				repository.NewRequirementRepository(database),
			)
			result, err := catalog.ImportProducts(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %d products\n", result.Created)
			for _, s := range result.Skipped {
				fmt.Fprintf(out, "skipped: %s\n", s)
			}
			return nil
		},
	})

	return cmd
}
