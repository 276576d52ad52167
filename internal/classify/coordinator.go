// Package classify implements the classification coordinator: the policy
// that resolves each transaction through user rules first and falls back to
// the AI provider, batching where beneficial.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beanpilot/beanpilot/internal/ai"
	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
	"github.com/beanpilot/beanpilot/internal/service"
	"github.com/beanpilot/beanpilot/internal/storage"
)

// Most recent rules included in the AI prompt as historical context.
const historicalRulesLimit = 50

// noHistoricalRules is the sentinel the prompt carries when no rules exist.
const noHistoricalRules = "no historical rules"

// defaultChartOfAccounts is used until the user stores their own chart.
const defaultChartOfAccounts = `Assets:Bank:Alipay
Assets:Bank:WeChat
Assets:Bank:Cash
Expenses:Food:Dining
Expenses:Food:Groceries
Expenses:Transport:Taxi
Expenses:Transport:Subway
Expenses:Shopping:Clothing
Expenses:Shopping:Electronics
Expenses:Entertainment:Movies
Expenses:Entertainment:Games
Expenses:Utilities:Phone
Expenses:Utilities:Internet
Expenses:Utilities:Electricity
Expenses:Health:Medicine
Expenses:Health:Insurance
Expenses:Education:Books
Expenses:Education:Courses
Expenses:Travel:Hotels
Expenses:Travel:Transport
Expenses:Misc
Income:Salary
Income:Investment
Income:Other`

// Coordinator decides rule-vs-AI per transaction and merges results. It is
// safe for sequential use per call; no mutual exclusion is provided across
// concurrent callers classifying the same transactions.
type Coordinator struct {
	store          service.Storage
	rules          *rule.Engine
	provider       ai.Provider
	logger         *slog.Logger
	defaultAccount string
}

// Config holds coordinator options.
type Config struct {
	// DefaultAccount is used for degraded results when the AI provider fails.
	DefaultAccount string
}

// NewCoordinator creates a classification coordinator.
func NewCoordinator(store service.Storage, rules *rule.Engine, provider ai.Provider, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.DefaultAccount == "" {
		cfg.DefaultAccount = ai.DefaultAccount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:          store,
		rules:          rules,
		provider:       provider,
		defaultAccount: cfg.DefaultAccount,
		logger:         logger,
	}
}

// ClassifyOne classifies a single transaction: a matching user rule
// short-circuits, otherwise the AI provider decides. A provider failure
// degrades to the default account with zero confidence rather than erroring;
// only structural problems (rule store unavailable) propagate.
func (c *Coordinator) ClassifyOne(ctx context.Context, txn model.Transaction) (model.Result, error) {
	resolved, err := c.resolveByUserRule(ctx, txn)
	if err != nil {
		return model.Result{}, err
	}
	if resolved != nil {
		return *resolved, nil
	}

	chart, rulesText, err := c.promptContext(ctx)
	if err != nil {
		return model.Result{}, err
	}

	aiResult, err := c.provider.Classify(ctx, txn, chart, rulesText)
	if err != nil {
		c.logger.Warn("AI classification failed, degrading to default",
			"transaction_id", txn.ID,
			"error", err)
		return c.degradedResult(err), nil
	}

	return model.Result{
		Account:    aiResult.Account,
		Confidence: aiResult.Confidence,
		Reasoning:  aiResult.Reasoning,
		Source:     model.SourceAI,
	}, nil
}

// ClassifyMany classifies a batch in two phases: a synchronous rule pass,
// then one batch AI call for everything the rules didn't resolve, spliced
// back by index. Output order always equals input order; downstream
// persistence correlates positionally.
func (c *Coordinator) ClassifyMany(ctx context.Context, txns []model.Transaction) ([]model.Result, error) {
	if len(txns) == 0 {
		return nil, nil
	}

	results := make([]model.Result, len(txns))
	var pending []model.Transaction
	var pendingIdx []int

	for i, txn := range txns {
		resolved, err := c.resolveByUserRule(ctx, txn)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			results[i] = *resolved
			continue
		}
		pending = append(pending, txn)
		pendingIdx = append(pendingIdx, i)
	}

	c.logger.Info("classification batch planned",
		"total", len(txns),
		"rule_resolved", len(txns)-len(pending),
		"ai_pending", len(pending))

	if len(pending) == 0 {
		return results, nil
	}

	chart, rulesText, err := c.promptContext(ctx)
	if err != nil {
		return nil, err
	}

	aiResults, err := c.provider.BatchClassify(ctx, pending, chart, rulesText)
	if err != nil {
		// One degraded result per unresolved slot; rule-resolved slots stand
		c.logger.Warn("batch AI classification failed, degrading pending slots",
			"count", len(pending),
			"error", err)
		degraded := c.degradedResult(err)
		for _, idx := range pendingIdx {
			results[idx] = degraded
		}
		return results, nil
	}

	if len(aiResults) != len(pending) {
		// The provider contract says this cannot happen; guard anyway rather
		// than silently truncating or padding.
		return nil, fmt.Errorf("%w: requested %d, received %d", common.ErrBatchMismatch, len(pending), len(aiResults))
	}

	for j, idx := range pendingIdx {
		results[idx] = model.Result{
			Account:    aiResults[j].Account,
			Confidence: aiResults[j].Confidence,
			Reasoning:  aiResults[j].Reasoning,
			Source:     model.SourceAI,
		}
	}

	return results, nil
}

// Persist appends a classification row for a transaction. Every classify
// attempt is recorded as a new immutable fact; "current" means newest.
func (c *Coordinator) Persist(ctx context.Context, transactionID string, result model.Result) error {
	classification := &model.Classification{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Account:       result.Account,
		Confidence:    result.Confidence,
		Source:        result.Source,
		Reasoning:     result.Reasoning,
		CreatedAt:     time.Now().UTC(),
	}

	if err := c.store.SaveClassification(ctx, classification); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}

	return nil
}

// resolveByUserRule returns a result when a user-authored rule matches, nil
// otherwise. Among matching user rules the highest confidence wins; exact
// ties resolve arbitrarily.
func (c *Coordinator) resolveByUserRule(ctx context.Context, txn model.Transaction) (*model.Result, error) {
	matched, err := c.rules.Match(ctx, txn.Peer, txn.Item, txn.Category)
	if err != nil {
		return nil, fmt.Errorf("rule matching failed: %w", err)
	}

	var best *model.Rule
	for i := range matched {
		if matched[i].Source != model.RuleSourceUser {
			continue
		}
		if best == nil || matched[i].Confidence > best.Confidence {
			best = &matched[i]
		}
	}

	if best == nil {
		return nil, nil
	}

	return &model.Result{
		Account:    best.Account,
		Confidence: best.Confidence,
		Reasoning:  fmt.Sprintf("Matched user rule: %s", best.Name),
		Source:     model.SourceRule,
	}, nil
}

// promptContext loads the chart of accounts and the recent-rules summary the
// AI provider receives with every call.
func (c *Coordinator) promptContext(ctx context.Context) (chart, rulesText string, err error) {
	chart, err = c.store.GetSetting(ctx, storage.SettingChartOfAccounts)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return "", "", fmt.Errorf("failed to load chart of accounts: %w", err)
		}
		chart = defaultChartOfAccounts
	}

	rules, err := c.rules.List(ctx, 0, historicalRulesLimit)
	if err != nil {
		return "", "", fmt.Errorf("failed to load historical rules: %w", err)
	}

	if len(rules) == 0 {
		return chart, noHistoricalRules, nil
	}

	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		lines = append(lines, fmt.Sprintf("- %s: %s -> %s", r.Name, r.Conditions.String(), r.Account))
	}

	return chart, strings.Join(lines, "\n"), nil
}

func (c *Coordinator) degradedResult(err error) model.Result {
	return model.Result{
		Account:    c.defaultAccount,
		Confidence: 0.0,
		Reasoning:  err.Error(),
		Source:     model.SourceAI,
	}
}
