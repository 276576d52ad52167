// Package ai provides the LLM provider abstraction for transaction
// classification. It supports OpenAI-compatible APIs, DeepSeek, and local
// Ollama deployments, with retry logic and rate limiting.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
)

// DefaultAccount is the fallback account used when a response cannot be
// parsed or a call degrades.
const DefaultAccount = "Expenses:Misc"

// Result is a single classification decision from a provider.
type Result struct {
	Account    string  `json:"account"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Provider is the contract every LLM variant implements. BatchClassify
// returns results aligned 1:1 with its input; implementations fall back to
// one-by-one classification internally rather than returning a short or
// padded slice. Callers own the provider and must Close it to stop any
// background rate-limiting work.
type Provider interface {
	Classify(ctx context.Context, txn model.Transaction, chartOfAccounts, historicalRules string) (Result, error)
	BatchClassify(ctx context.Context, txns []model.Transaction, chartOfAccounts, historicalRules string) ([]Result, error)
	ValidateConfig() error
	Close()
}

// Config holds the per-instance configuration surface shared by all
// provider variants.
type Config struct {
	BaseURL     string        `json:"api_base"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"-"`

	// RateLimit is the allowed requests per minute; 0 uses the default.
	RateLimit int `json:"-"`
}

// Validate checks the configuration for the fields every remote variant needs.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: api_base", common.ErrMissingConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model", common.ErrMissingConfig)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: temperature %v outside [0,1]", common.ErrInvalidConfig, c.Temperature)
	}
	return nil
}
