package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/beanpilot/beanpilot/internal/model"
)

// SaveFeedback appends an immutable feedback record.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(feedback); err != nil {
		return err
	}

	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			id, transaction_id, action, original_account, corrected_account, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		feedback.ID, feedback.TransactionID, string(feedback.Action),
		feedback.OriginalAccount, feedback.CorrectedAccount, feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	return nil
}

// GetFeedbackByTransaction returns all feedback for a transaction, oldest first.
func (s *SQLiteStorage) GetFeedbackByTransaction(ctx context.Context, transactionID string) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	return s.queryFeedback(ctx, `
		SELECT id, transaction_id, action, original_account, corrected_account, created_at
		FROM feedback
		WHERE transaction_id = ?
		ORDER BY created_at, rowid
	`, transactionID)
}

// ListFeedback returns feedback records in insertion order with offset/limit
// paging. A limit of 0 or less returns everything after the offset.
func (s *SQLiteStorage) ListFeedback(ctx context.Context, offset, limit int) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1
	}

	return s.queryFeedback(ctx, `
		SELECT id, transaction_id, action, original_account, corrected_account, created_at
		FROM feedback
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (s *SQLiteStorage) queryFeedback(ctx context.Context, query string, args ...any) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feedbacks []model.Feedback
	for rows.Next() {
		var f model.Feedback
		var action string
		if scanErr := rows.Scan(
			&f.ID, &f.TransactionID, &action,
			&f.OriginalAccount, &f.CorrectedAccount, &f.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", scanErr)
		}
		f.Action = model.FeedbackAction(action)
		feedbacks = append(feedbacks, f)
	}

	return feedbacks, rows.Err()
}
