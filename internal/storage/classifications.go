package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
)

// SaveClassification appends a classification row. Rows are never overwritten;
// each classify attempt is its own immutable fact and the newest one wins for
// display.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, classification *model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(classification); err != nil {
		return err
	}

	if classification.CreatedAt.IsZero() {
		classification.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classifications (
			id, transaction_id, account, confidence, source, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		classification.ID, classification.TransactionID, classification.Account,
		classification.Confidence, string(classification.Source),
		classification.Reasoning, classification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return nil
}

// GetClassificationsByTransaction returns every classification recorded for a
// transaction, oldest first.
func (s *SQLiteStorage) GetClassificationsByTransaction(ctx context.Context, transactionID string) ([]model.Classification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, account, confidence, source, reasoning, created_at
		FROM classifications
		WHERE transaction_id = ?
		ORDER BY created_at, rowid
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classifications []model.Classification
	for rows.Next() {
		c, scanErr := scanClassification(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", scanErr)
		}
		classifications = append(classifications, *c)
	}

	return classifications, rows.Err()
}

// GetLatestClassification returns the most recently created classification for
// a transaction. Rowid breaks created_at ties so same-second appends still
// resolve to the newest row.
func (s *SQLiteStorage) GetLatestClassification(ctx context.Context, transactionID string) (*model.Classification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, account, confidence, source, reasoning, created_at
		FROM classifications
		WHERE transaction_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, transactionID)

	c, err := scanClassification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("classification for transaction %s: %w", transactionID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest classification: %w", err)
	}

	return c, nil
}

// RetargetClassification rewrites the account of an existing classification
// and marks it user-sourced. This is the single documented exception to the
// append-only rule, used when modify feedback corrects the latest decision.
func (s *SQLiteStorage) RetargetClassification(ctx context.Context, classificationID, account string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(classificationID, "classificationID"); err != nil {
		return err
	}
	if err := validateString(account, "account"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE classifications
		SET account = ?, source = ?
		WHERE id = ?
	`, account, string(model.SourceUser), classificationID)
	if err != nil {
		return fmt.Errorf("failed to retarget classification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("classification %s: %w", classificationID, common.ErrNotFound)
	}

	return nil
}

func scanClassification(row scanner) (*model.Classification, error) {
	var c model.Classification
	var source string
	err := row.Scan(
		&c.ID, &c.TransactionID, &c.Account,
		&c.Confidence, &source, &c.Reasoning, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Source = model.ClassificationSource(source)
	return &c, nil
}
