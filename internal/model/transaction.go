// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction from any provider export.
// Transactions are immutable once created; deleting one cascades to its
// classifications and feedback.
type Transaction struct {
	CreatedAt time.Time
	ID        string
	Peer      string // Counterparty name
	Item      string // Description of what was bought
	Category  string // Category label supplied by the data source
	Type      string // Income/expense tag from the source
	Time      string // Free-text timestamp as exported by the provider
	Currency  string
	Provider  string // Data source tag, e.g. "alipay" or "wechat"
	RawData   string // Opaque original record kept for audit
	Amount    decimal.Decimal
}
