package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beanpilot/beanpilot/internal/ingest"
)

func importCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV export",
		Long: `Import parses a bank or payment platform CSV export and stores the
transactions for classification. Alipay and WeChat Pay exports are detected
by their native column layouts; anything else uses the generic layout
(time, peer, item, amount, type, category).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open CSV file: %w", err)
			}
			defer f.Close()

			txns, err := ingest.Parse(f, provider)
			if err != nil {
				return fmt.Errorf("failed to parse CSV: %w", err)
			}
			if len(txns) == 0 {
				fmt.Println(warningStyle.Render("No transactions found in file"))
				return nil
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveTransactions(ctx, txns); err != nil {
				return fmt.Errorf("failed to save transactions: %w", err)
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Imported %d transactions from %s", len(txns), args[0])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", ingest.ProviderGeneric, "CSV layout: alipay, wechat, or generic")

	return cmd
}
