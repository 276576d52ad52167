// Package rule implements the rule engine: CRUD over classification rules and
// the matching predicate that decides which rules apply to a transaction.
package rule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/service"
)

// Confidence assigned to rules synthesized from feedback mining. User-authored
// rules default to 1.0.
const autoRuleConfidence = 0.9

// Engine manages rule lifecycle and matching. It holds no state beyond its
// storage handle; all reads go to the store so concurrent rule edits are
// visible immediately.
type Engine struct {
	store  service.Storage
	logger *slog.Logger
}

// NewEngine creates a rule engine backed by the given store.
func NewEngine(store service.Storage, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Create validates and persists a new rule. Conditions must constrain at
// least one field; an empty conditions set is a validation error, never a
// match-everything rule.
func (e *Engine) Create(ctx context.Context, name string, conditions model.RuleConditions, account string, confidence float64, source model.RuleSource) (*model.Rule, error) {
	if conditions.IsEmpty() {
		return nil, fmt.Errorf("%w: rule conditions cannot be empty", common.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: rule name cannot be empty", common.ErrValidation)
	}
	if account == "" {
		return nil, fmt.Errorf("%w: rule account cannot be empty", common.ErrValidation)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", common.ErrValidation, confidence)
	}

	rule := &model.Rule{
		ID:         uuid.NewString(),
		Name:       name,
		Conditions: conditions,
		Account:    account,
		Confidence: confidence,
		Source:     source,
	}

	if err := e.store.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	e.logger.Info("rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"account", rule.Account,
		"source", rule.Source)

	return rule, nil
}

// CreateUserRule creates a user-authored rule with full confidence.
func (e *Engine) CreateUserRule(ctx context.Context, name string, conditions model.RuleConditions, account string) (*model.Rule, error) {
	return e.Create(ctx, name, conditions, account, 1.0, model.RuleSourceUser)
}

// Get retrieves a rule by ID.
func (e *Engine) Get(ctx context.Context, id string) (*model.Rule, error) {
	return e.store.GetRule(ctx, id)
}

// List returns rules in insertion order.
func (e *Engine) List(ctx context.Context, offset, limit int) ([]model.Rule, error) {
	return e.store.ListRules(ctx, offset, limit)
}

// Update applies a partial update to a rule and refreshes its updated_at.
func (e *Engine) Update(ctx context.Context, id string, update model.RuleUpdate) (*model.Rule, error) {
	rule, err := e.store.UpdateRule(ctx, id, update)
	if err != nil {
		return nil, err
	}

	e.logger.Info("rule updated", "rule_id", id)
	return rule, nil
}

// Delete removes a rule, reporting whether it existed.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := e.store.DeleteRule(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		e.logger.Info("rule deleted", "rule_id", id)
	}
	return deleted, nil
}

// Match returns every rule whose present condition keys all evaluate true for
// the given transaction fields. Ordering among equal-source rules is not
// specified; callers apply their own tie-break policy.
func (e *Engine) Match(ctx context.Context, peer, item, category string) ([]model.Rule, error) {
	rules, err := e.store.ListRules(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for matching: %w", err)
	}

	var matched []model.Rule
	for _, rule := range rules {
		if rule.Conditions.Matches(peer, item, category) {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

// ExportMapping flattens all rules into the double-entry-generator mapping
// format: every peer and item pattern becomes a key pointing at the rule's
// account. Later rules silently overwrite earlier ones on key collision; this
// is a known limitation of the flat format, not a priority order.
func (e *Engine) ExportMapping(ctx context.Context) (string, error) {
	rules, err := e.store.ListRules(ctx, 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load rules for export: %w", err)
	}

	type mappingEntry struct {
		Account string `yaml:"account"`
	}

	mapping := make(map[string]mappingEntry)
	for _, rule := range rules {
		for _, peer := range rule.Conditions.Peer {
			mapping[peer] = mappingEntry{Account: rule.Account}
		}
		for _, item := range rule.Conditions.Item {
			mapping[item] = mappingEntry{Account: rule.Account}
		}
	}

	out, err := yaml.Marshal(map[string]any{"mapping": mapping})
	if err != nil {
		return "", fmt.Errorf("failed to serialize mapping: %w", err)
	}

	return string(out), nil
}

// AutoGenerateFromFeedback builds a rule from a mined correction pattern.
// Conditions come from whichever transaction fields are non-empty; the name
// is a truncated human-readable summary with a random suffix for uniqueness.
func (e *Engine) AutoGenerateFromFeedback(ctx context.Context, peer, item, category, account string) (*model.Rule, error) {
	conditions := model.RuleConditions{}
	if peer != "" {
		conditions.Peer = []string{peer}
	}
	if item != "" {
		conditions.Item = []string{item}
	}
	if category != "" {
		conditions.Category = []string{category}
	}

	name := buildAutoRuleName(peer, item, category)

	rule, err := e.Create(ctx, name, conditions, account, autoRuleConfidence, model.RuleSourceAuto)
	if err != nil {
		return nil, err
	}

	e.logger.Info("auto-generated rule from feedback",
		"rule_id", rule.ID,
		"name", rule.Name,
		"account", account)

	return rule, nil
}

// buildAutoRuleName joins 10-character truncations of the pattern components
// and appends a 6-character random suffix so repeated generations never
// collide on name.
func buildAutoRuleName(peer, item, category string) string {
	parts := make([]string, 0, 3)
	for _, component := range []string{peer, item, category} {
		if component == "" {
			continue
		}
		parts = append(parts, truncateRunes(component, 10))
	}

	name := "auto-generated-rule"
	if len(parts) > 0 {
		name = strings.Join(parts, "-")
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return name + "-" + suffix
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
