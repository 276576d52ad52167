package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/beanpilot/beanpilot/internal/feedback"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record corrections and mine them into rules",
	}

	cmd.AddCommand(feedbackRecordCmd())
	cmd.AddCommand(feedbackStatsCmd())
	cmd.AddCommand(feedbackLearnCmd())

	return cmd
}

func feedbackRecordCmd() *cobra.Command {
	var (
		action    string
		original  string
		corrected string
	)

	cmd := &cobra.Command{
		Use:   "record <transaction-id>",
		Short: "Record feedback on a classification",
		Long: `Record stores an accept, reject, or modify verdict for a transaction's
classification. A modify with --corrected also retargets the latest stored
classification to the corrected account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules := rule.NewEngine(store, slog.Default())
			learner := feedback.NewLearner(store, rules, slog.Default())

			fb, err := learner.Record(ctx, args[0], original, corrected, model.FeedbackAction(action))
			if err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Recorded %s feedback (%s)", fb.Action, fb.ID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", "", "accept, reject, or modify (required)")
	cmd.Flags().StringVar(&original, "original", "", "the account the classifier chose")
	cmd.Flags().StringVar(&corrected, "corrected", "", "the account it should have been (modify only)")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func feedbackStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show feedback statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules := rule.NewEngine(store, slog.Default())
			learner := feedback.NewLearner(store, rules, slog.Default())

			stats, err := learner.Statistics(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute statistics: %w", err)
			}

			fmt.Println(headerStyle.Render("Feedback"))
			fmt.Printf("  Total:   %d\n", stats.Total)
			fmt.Printf("  Accept:  %d (%.1f%%)\n", stats.Accept, stats.AcceptRate*100)
			fmt.Printf("  Reject:  %d\n", stats.Reject)
			fmt.Printf("  Modify:  %d (%.1f%%)\n", stats.Modify, stats.ModifyRate*100)
			return nil
		},
	}
}

func feedbackLearnCmd() *cobra.Command {
	var minOccurrences int

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Mine corrections into auto rules",
		Long: `Learn groups modify feedback by transaction pattern and creates an auto
rule for every pattern corrected to the same account at least --min times.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules := rule.NewEngine(store, slog.Default())
			learner := feedback.NewLearner(store, rules, slog.Default())

			created, err := learner.GenerateRules(ctx, minOccurrences)
			if err != nil {
				return fmt.Errorf("failed to generate rules: %w", err)
			}

			if len(created) == 0 {
				fmt.Println(mutedStyle.Render("No patterns have enough consistent corrections yet"))
				return nil
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Created %d auto rules", len(created))))
			for _, r := range created {
				fmt.Printf("  %s: %s → %s\n", titleStyle.Render(r.Name), r.Conditions.String(), accountStyle.Render(r.Account))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minOccurrences, "min", feedback.DefaultMinOccurrences, "minimum consistent corrections per pattern")

	return cmd
}
