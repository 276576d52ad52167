// Package feedback records user signals against classifications and mines
// correction history into new rules, closing the learning loop.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
	"github.com/beanpilot/beanpilot/internal/service"
)

// DefaultMinOccurrences is the group size a correction pattern must reach
// before it becomes a rule.
const DefaultMinOccurrences = 3

// Learner records feedback and generates rules from recurring corrections.
type Learner struct {
	store  service.Storage
	rules  *rule.Engine
	logger *slog.Logger
}

// NewLearner creates a feedback learner.
func NewLearner(store service.Storage, rules *rule.Engine, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, rules: rules, logger: logger}
}

// Record stores a feedback event. A modify action with a non-empty corrected
// account also retargets the transaction's most recent classification to the
// correction, marked user-sourced. This is the single place outside a direct
// user edit where a classification row changes after creation.
func (l *Learner) Record(ctx context.Context, transactionID, originalAccount, correctedAccount string, action model.FeedbackAction) (*model.Feedback, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown feedback action %q", common.ErrValidation, action)
	}

	fb := &model.Feedback{
		ID:               uuid.NewString(),
		TransactionID:    transactionID,
		Action:           action,
		OriginalAccount:  originalAccount,
		CorrectedAccount: correctedAccount,
		CreatedAt:        time.Now().UTC(),
	}

	if err := l.store.SaveFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	if action == model.FeedbackModify && correctedAccount != "" {
		if err := l.retargetLatest(ctx, transactionID, correctedAccount); err != nil {
			return nil, err
		}
	}

	l.logger.Info("feedback recorded",
		"feedback_id", fb.ID,
		"transaction_id", transactionID,
		"action", action)

	return fb, nil
}

func (l *Learner) retargetLatest(ctx context.Context, transactionID, account string) error {
	latest, err := l.store.GetLatestClassification(ctx, transactionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Nothing to retarget; the feedback itself still stands
			return nil
		}
		return fmt.Errorf("failed to load latest classification: %w", err)
	}

	if err := l.store.RetargetClassification(ctx, latest.ID, account); err != nil {
		return fmt.Errorf("failed to retarget classification: %w", err)
	}

	l.logger.Info("classification retargeted from feedback",
		"classification_id", latest.ID,
		"transaction_id", transactionID,
		"account", account)

	return nil
}

// Statistics computes feedback counts and rates over all recorded feedback.
// Rates are zero, not an error, when no feedback exists.
func (l *Learner) Statistics(ctx context.Context) (service.FeedbackStats, error) {
	feedbacks, err := l.store.ListFeedback(ctx, 0, 0)
	if err != nil {
		return service.FeedbackStats{}, fmt.Errorf("failed to list feedback: %w", err)
	}

	stats := service.FeedbackStats{Total: len(feedbacks)}
	for _, fb := range feedbacks {
		switch fb.Action {
		case model.FeedbackAccept:
			stats.Accept++
		case model.FeedbackReject:
			stats.Reject++
		case model.FeedbackModify:
			stats.Modify++
		}
	}

	if stats.Total > 0 {
		stats.AcceptRate = float64(stats.Accept) / float64(stats.Total)
		stats.ModifyRate = float64(stats.Modify) / float64(stats.Total)
	}

	return stats, nil
}

// correctionGroup collects the modify feedback seen for one transaction
// pattern.
type correctionGroup struct {
	peer     string
	item     string
	category string
	accounts []string
}

// GenerateRules mines modify feedback for recurring patterns corrected to the
// same account and materializes an auto rule per qualifying group. Groups
// below the occurrence threshold or with disagreeing corrections are skipped
// silently; this is exploratory mining, not guaranteed coverage.
func (l *Learner) GenerateRules(ctx context.Context, minOccurrences int) ([]model.Rule, error) {
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}

	feedbacks, err := l.store.ListFeedback(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	groups := make(map[string]*correctionGroup)
	var order []string

	for _, fb := range feedbacks {
		if fb.Action != model.FeedbackModify {
			continue
		}

		txn, txnErr := l.store.GetTransactionByID(ctx, fb.TransactionID)
		if txnErr != nil {
			if errors.Is(txnErr, common.ErrNotFound) {
				// Transaction deleted since the feedback was recorded
				continue
			}
			return nil, fmt.Errorf("failed to resolve feedback transaction: %w", txnErr)
		}

		key := fmt.Sprintf("%s|%s|%s", txn.Peer, txn.Item, txn.Category)
		group, ok := groups[key]
		if !ok {
			group = &correctionGroup{peer: txn.Peer, item: txn.Item, category: txn.Category}
			groups[key] = group
			order = append(order, key)
		}
		group.accounts = append(group.accounts, fb.CorrectedAccount)
	}

	var generated []model.Rule
	for _, key := range order {
		group := groups[key]
		if len(group.accounts) < minOccurrences {
			continue
		}
		if !allEqual(group.accounts) {
			l.logger.Debug("skipping pattern with disagreeing corrections",
				"pattern", key,
				"occurrences", len(group.accounts))
			continue
		}
		// Modify feedback may legally carry no corrected account, and a
		// transaction may carry no pattern fields at all; neither can
		// become a rule, so such groups are skipped like any other
		// non-qualifying group instead of failing the whole run.
		if group.accounts[0] == "" {
			l.logger.Debug("skipping pattern corrected to an empty account",
				"pattern", key,
				"occurrences", len(group.accounts))
			continue
		}
		if group.peer == "" && group.item == "" && group.category == "" {
			l.logger.Debug("skipping feedback group with no pattern fields",
				"occurrences", len(group.accounts))
			continue
		}

		generatedRule, genErr := l.rules.AutoGenerateFromFeedback(ctx, group.peer, group.item, group.category, group.accounts[0])
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate rule for pattern %q: %w", key, genErr)
		}
		generated = append(generated, *generatedRule)
	}

	l.logger.Info("feedback mining finished",
		"patterns", len(groups),
		"rules_generated", len(generated),
		"min_occurrences", minOccurrences)

	return generated, nil
}

func allEqual(values []string) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
