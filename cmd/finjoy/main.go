// finjoy is the offline companion CLI: CSV export/import against the same
// database the server uses, plus an on-demand materialization sweep.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"finjoy/internal/config"
	"finjoy/internal/services"
	"finjoy/internal/storage"
	"finjoy/internal/transfer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "finjoy",
		Short:         "Personal finance tracker utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCmd(), newImportCmd(), newMaterializeCmd())
	return root
}

// openRepo loads configuration, runs migrations and opens the repository.
// The caller must Close it.
func openRepo() (*storage.SQLiteRepository, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
}

func newExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full dataset as sectioned CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if err := transfer.Export(cmd.Context(), repo, out); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a sectioned CSV, skipping rows already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ledger := services.NewLedgerService(repo, nil)
			categories := services.NewCategoryService(repo)
			importer := transfer.NewImporter(repo, ledger, categories)

			result, err := importer.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Transactions: %d imported, %d skipped\nRecurring: %d imported, %d skipped\nMalformed rows: %d\n",
				result.TransactionsImported, result.TransactionsSkipped,
				result.RecurringImported, result.RecurringSkipped,
				result.Malformed)
			return nil
		},
	}
}

func newMaterializeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materialize",
		Short: "Generate all overdue recurring transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			ledger := services.NewLedgerService(repo, nil)
			materializer := services.NewMaterializer(repo, ledger)

			created, err := materializer.MaterializeUpTo(context.Background(), materializer.Today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d transactions\n", created)
			return nil
		},
	}
}
