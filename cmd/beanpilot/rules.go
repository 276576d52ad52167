package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long:  `Rules map transaction patterns to beancount accounts. A matching user rule always beats the AI.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesExportCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	var (
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classification rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := rule.NewEngine(store, slog.Default())
			rules, err := engine.List(ctx, offset, limit)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println(mutedStyle.Render("No rules yet. Add one with 'beanpilot rules add' or mine them with 'beanpilot feedback learn'."))
				return nil
			}

			fmt.Println(headerStyle.Render(fmt.Sprintf("%d rules", len(rules))))
			for _, r := range rules {
				source := mutedStyle.Render(string(r.Source))
				if r.Source == model.RuleSourceAuto {
					source = warningStyle.Render(string(r.Source))
				}
				fmt.Printf("  %s  %s\n", titleStyle.Render(r.Name), source)
				fmt.Printf("    %s → %s %s\n",
					r.Conditions.String(),
					accountStyle.Render(r.Account),
					mutedStyle.Render(fmt.Sprintf("(confidence %.2f, id %s)", r.Confidence, r.ID)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "number of rules to skip")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of rules to show (0 = no limit)")

	return cmd
}

func rulesAddCmd() *cobra.Command {
	var (
		name       string
		account    string
		peers      []string
		items      []string
		categories []string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user rule",
		Long: `Add creates a user rule. Peer and item patterns match as substrings;
category patterns match exactly. At least one pattern is required.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := rule.NewEngine(store, slog.Default())
			conditions := model.RuleConditions{
				Peer:     peers,
				Item:     items,
				Category: categories,
			}

			created, err := engine.Create(ctx, name, conditions, account, confidence, model.RuleSourceUser)
			if err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Created rule %q (%s)", created.Name, created.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	cmd.Flags().StringVar(&account, "account", "", "target beancount account (required)")
	cmd.Flags().StringSliceVar(&peers, "peer", nil, "peer substring pattern (repeatable)")
	cmd.Flags().StringSliceVar(&items, "item", nil, "item substring pattern (repeatable)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "exact category pattern (repeatable)")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "rule confidence in [0,1]")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := rule.NewEngine(store, slog.Default())
			deleted, err := engine.Delete(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			if !deleted {
				fmt.Println(warningStyle.Render(fmt.Sprintf("No rule with id %s", args[0])))
				return nil
			}

			fmt.Println(successStyle.Render("✓ Rule deleted"))
			return nil
		},
	}
}

func rulesExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rules as a double-entry-generator mapping",
		Long: `Export renders all rules as the YAML account mapping consumed by
double-entry-generator. Later rules win when patterns collide.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := rule.NewEngine(store, slog.Default())
			mapping, err := engine.ExportMapping(ctx)
			if err != nil {
				return fmt.Errorf("failed to export rules: %w", err)
			}

			if output == "" {
				fmt.Print(mapping)
				return nil
			}
			if err := os.WriteFile(output, []byte(mapping), 0o644); err != nil {
				return fmt.Errorf("failed to write mapping file: %w", err)
			}
			fmt.Println(successStyle.Render("✓ Wrote mapping to " + output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the mapping to a file instead of stdout")

	return cmd
}
