package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beanpilot/beanpilot/internal/classify"
	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
	"github.com/beanpilot/beanpilot/internal/service"
)

// classifyChunkSize keeps each coordinator call small enough to use the
// provider's batch prompt.
const classifyChunkSize = 10

func classifyCmd() *cobra.Command {
	var (
		providerFilter string
		limit          int
		all            bool
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify imported transactions",
		Long: `Classify assigns a beancount account to each stored transaction. A
matching user rule wins outright; everything else goes to the configured AI
provider. Transactions that already have a classification are skipped unless
--all is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.ListTransactions(ctx, service.TransactionFilter{
				Provider: providerFilter,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			pending := txns
			if !all {
				pending, err = filterUnclassified(cmd, store, txns)
				if err != nil {
					return err
				}
			}
			if len(pending) == 0 {
				fmt.Println(mutedStyle.Render("Nothing to classify"))
				return nil
			}

			provider, err := buildProvider(ctx, store)
			if err != nil {
				return err
			}
			defer provider.Close()

			rules := rule.NewEngine(store, slog.Default())
			coordinator := classify.NewCoordinator(store, rules, provider, classify.Config{
				DefaultAccount: viper.GetString("classification.default_account"),
			}, slog.Default())

			fmt.Println(titleStyle.Render(fmt.Sprintf("Classifying %d transactions", len(pending))))

			bar := progressbar.NewOptions(len(pending),
				progressbar.OptionSetDescription("Classifying"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var degraded int
			for start := 0; start < len(pending); start += classifyChunkSize {
				end := start + classifyChunkSize
				if end > len(pending) {
					end = len(pending)
				}
				chunk := pending[start:end]

				results, err := coordinator.ClassifyMany(ctx, chunk)
				if err != nil {
					return fmt.Errorf("classification failed: %w", err)
				}

				for i, res := range results {
					if !dryRun {
						if err := coordinator.Persist(ctx, chunk[i].ID, res); err != nil {
							return fmt.Errorf("failed to save classification: %w", err)
						}
					}
					if res.Confidence == 0 {
						degraded++
					}
					_ = bar.Add(1)
				}

				printResults(chunk, results)
			}
			_ = bar.Finish()

			summary := fmt.Sprintf("✓ Classified %d transactions", len(pending))
			if dryRun {
				summary += " (dry run, nothing saved)"
			}
			fmt.Println(successStyle.Render(summary))
			if degraded > 0 {
				fmt.Println(warningStyle.Render(fmt.Sprintf("! %d transactions fell back to the default account; re-run classify --all after fixing the provider", degraded)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerFilter, "provider", "p", "", "only classify transactions from this import provider")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "classify at most N transactions (0 = no limit)")
	cmd.Flags().BoolVar(&all, "all", false, "re-classify transactions that already have a classification")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show results without saving them")

	return cmd
}

// filterUnclassified keeps only transactions without any stored
// classification, preserving input order.
func filterUnclassified(cmd *cobra.Command, store service.Storage, txns []model.Transaction) ([]model.Transaction, error) {
	pending := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		_, err := store.GetLatestClassification(cmd.Context(), txn.ID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			pending = append(pending, txn)
		case err != nil:
			return nil, fmt.Errorf("failed to check classification: %w", err)
		}
	}
	return pending, nil
}

func printResults(txns []model.Transaction, results []model.Result) {
	for i, res := range results {
		txn := txns[i]
		label := txn.Peer
		if txn.Item != "" {
			label += " / " + txn.Item
		}
		line := fmt.Sprintf("  %s → %s %s",
			label,
			accountStyle.Render(res.Account),
			mutedStyle.Render(fmt.Sprintf("(%s, %.2f)", res.Source, res.Confidence)))
		fmt.Println(line)
	}
}
