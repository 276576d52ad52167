// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/beanpilot/beanpilot/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Provider string
	Peer     string
	Item     string
	Offset   int
	Limit    int
}

// Storage defines the contract for the persistence layer. It is a plain
// record store: create/read/update/delete plus the by-transaction lookups
// the classification and feedback components need.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	SaveTransactions(ctx context.Context, txns []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id string) (*model.Rule, error)
	ListRules(ctx context.Context, offset, limit int) ([]model.Rule, error)
	UpdateRule(ctx context.Context, id string, update model.RuleUpdate) (*model.Rule, error)
	DeleteRule(ctx context.Context, id string) (bool, error)

	// Classification operations
	SaveClassification(ctx context.Context, classification *model.Classification) error
	GetClassificationsByTransaction(ctx context.Context, transactionID string) ([]model.Classification, error)
	GetLatestClassification(ctx context.Context, transactionID string) (*model.Classification, error)
	RetargetClassification(ctx context.Context, classificationID, account string) error

	// Feedback operations
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
	GetFeedbackByTransaction(ctx context.Context, transactionID string) ([]model.Feedback, error)
	ListFeedback(ctx context.Context, offset, limit int) ([]model.Feedback, error)

	// Settings (chart of accounts, provider configuration)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// FeedbackStats aggregates user feedback counts and rates.
type FeedbackStats struct {
	Total      int
	Accept     int
	Reject     int
	Modify     int
	AcceptRate float64
	ModifyRate float64
}
