package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beanpilot/beanpilot/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidRule           = errors.New("invalid rule")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidFeedback       = errors.New("invalid feedback")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	return nil
}

// validateRule validates a rule before it is written.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRule)
	}
	if rule.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if rule.Account == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidRule)
	}
	if rule.Conditions.IsEmpty() {
		return fmt.Errorf("%w: empty conditions", ErrInvalidRule)
	}
	return nil
}

// validateClassification validates a classification record.
func validateClassification(c *model.Classification) error {
	if c == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidClassification)
	}
	if c.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidClassification)
	}
	if c.Account == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidClassification)
	}
	return nil
}

// validateFeedback validates a feedback record.
func validateFeedback(f *model.Feedback) error {
	if f == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if f.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidFeedback)
	}
	if f.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidFeedback)
	}
	if !f.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidFeedback, f.Action)
	}
	return nil
}
