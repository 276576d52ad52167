package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/beanpilot/beanpilot/internal/ingest"
	"github.com/beanpilot/beanpilot/internal/ledger"
	"github.com/beanpilot/beanpilot/internal/rule"
	"github.com/beanpilot/beanpilot/internal/service"
)

func exportCmd() *cobra.Command {
	var (
		provider string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as a beancount ledger",
		Long: `Export runs double-entry-generator over the stored transactions, using
the current rules as its account mapping, and writes the resulting beancount
file. double-entry-generator must be on PATH.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			gen := ledger.NewGenerator()
			if !gen.Installed() {
				return fmt.Errorf("double-entry-generator not found on PATH; install it from https://github.com/deb-sig/double-entry-generator")
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.ListTransactions(ctx, service.TransactionFilter{Provider: provider})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			if len(txns) == 0 {
				fmt.Println(warningStyle.Render("No transactions to export"))
				return nil
			}

			engine := rule.NewEngine(store, slog.Default())
			mapping, err := engine.ExportMapping(ctx)
			if err != nil {
				return fmt.Errorf("failed to export rules: %w", err)
			}

			content, err := gen.GenerateBeancount(ctx, txns, provider, mapping)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Print(content)
				return nil
			}
			if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to write ledger file: %w", err)
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %d transactions to %s", len(txns), output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", ingest.ProviderAlipay, "transaction provider to export: alipay, wechat, or generic")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the ledger to a file instead of stdout")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Println(successStyle.Render("✓ Database schema is up to date"))
			return nil
		},
	}
}
