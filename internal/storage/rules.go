package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
)

// CreateRule persists a new rule. Conditions are serialized to the JSON text
// column here and nowhere else; matching always works on the domain struct.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to serialize conditions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (
			id, name, conditions, account, confidence, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ID, rule.Name, string(conditions), rule.Account,
		rule.Confidence, string(rule.Source), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, conditions, account, confidence, source, created_at, updated_at
		FROM rules
		WHERE id = ?
	`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// ListRules returns rules in insertion order with offset/limit paging. A
// limit of 0 or less returns everything after the offset.
func (s *SQLiteStorage) ListRules(ctx context.Context, offset, limit int) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, conditions, account, confidence, source, created_at, updated_at
		FROM rules
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// UpdateRule applies a partial update and refreshes updated_at. Fields left
// nil in the update are not touched.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, id string, update model.RuleUpdate) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	setClauses := "updated_at = ?"
	args := []any{time.Now().UTC()}

	if update.Name != nil {
		setClauses += ", name = ?"
		args = append(args, *update.Name)
	}
	if update.Conditions != nil {
		if update.Conditions.IsEmpty() {
			return nil, fmt.Errorf("%w: empty conditions", ErrInvalidRule)
		}
		conditions, err := json.Marshal(*update.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize conditions: %w", err)
		}
		setClauses += ", conditions = ?"
		args = append(args, string(conditions))
	}
	if update.Account != nil {
		setClauses += ", account = ?"
		args = append(args, *update.Account)
	}
	if update.Confidence != nil {
		setClauses += ", confidence = ?"
		args = append(args, *update.Confidence)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, `UPDATE rules SET `+setClauses+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}

	return s.GetRule(ctx, id)
}

// DeleteRule removes a rule, reporting whether a row existed.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return affected > 0, nil
}

func scanRule(row scanner) (*model.Rule, error) {
	var rule model.Rule
	var conditions string
	var source string
	err := row.Scan(
		&rule.ID, &rule.Name, &conditions, &rule.Account,
		&rule.Confidence, &source, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("corrupt conditions for rule %s: %w", rule.ID, err)
	}
	rule.Source = model.RuleSource(source)

	return &rule, nil
}
