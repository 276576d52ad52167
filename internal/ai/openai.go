package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/service"
)

// Batch prompts above this size get classified one by one; long prompts make
// models drop or reorder entries.
const maxBatchPromptSize = 10

// Concurrency cap for the one-by-one fallback.
const maxConcurrentCalls = 5

// openAICompatible implements Provider against any chat-completions endpoint
// speaking the OpenAI wire format (OpenAI, DeepSeek, Ollama, custom gateways).
type openAICompatible struct {
	httpClient   *http.Client
	rateLimiter  *rateLimiter
	cfg          Config
	retryOpts    service.RetryOptions
	batchCapable bool
	requireKey   bool
}

func newOpenAICompatible(cfg Config, batchCapable bool) (*openAICompatible, error) {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	p := &openAICompatible{
		cfg:          cfg,
		batchCapable: batchCapable,
		requireKey:   !strings.Contains(cfg.BaseURL, "localhost") && !strings.Contains(cfg.BaseURL, "127.0.0.1"),
		rateLimiter:  newRateLimiter(cfg.RateLimit),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	if err := p.ValidateConfig(); err != nil {
		return nil, err
	}

	return p, nil
}

// ValidateConfig checks that the instance has everything it needs to make calls.
func (p *openAICompatible) ValidateConfig() error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	if p.requireKey && p.cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key", common.ErrMissingConfig)
	}
	return nil
}

// Classify classifies a single transaction.
func (p *openAICompatible) Classify(ctx context.Context, txn model.Transaction, chartOfAccounts, historicalRules string) (Result, error) {
	prompt := buildClassificationPrompt(txn, chartOfAccounts, historicalRules)

	content, err := p.complete(ctx, prompt, 200)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrProvider, err)
	}

	return parseClassification(content), nil
}

// BatchClassify classifies a batch, keeping results aligned 1:1 with input.
// Small batches go out as one prompt; a count mismatch in the reply (models
// drop entries under load) or a request failure falls back to classifying
// one by one, so the caller always receives exactly len(txns) results.
func (p *openAICompatible) BatchClassify(ctx context.Context, txns []model.Transaction, chartOfAccounts, historicalRules string) ([]Result, error) {
	if len(txns) == 0 {
		return nil, nil
	}

	if !p.batchCapable || len(txns) > maxBatchPromptSize {
		return p.classifyOneByOne(ctx, txns, chartOfAccounts, historicalRules)
	}

	prompt := buildBatchPrompt(txns, chartOfAccounts, historicalRules)
	content, err := p.complete(ctx, prompt, 1000)
	if err != nil {
		slog.Warn("batch classification request failed, falling back to one-by-one",
			"count", len(txns),
			"error", err)
		return p.classifyOneByOne(ctx, txns, chartOfAccounts, historicalRules)
	}

	results := parseBatchClassification(content)
	if len(results) != len(txns) {
		slog.Warn("batch result count mismatch, falling back to one-by-one",
			"requested", len(txns),
			"received", len(results),
			"error", common.ErrBatchMismatch)
		return p.classifyOneByOne(ctx, txns, chartOfAccounts, historicalRules)
	}

	return results, nil
}

// classifyOneByOne issues concurrent single classifications, bounded to
// maxConcurrentCalls in flight. Individual failures are absorbed into
// degraded per-slot results; completion order never affects result order,
// since each goroutine writes only its own index.
func (p *openAICompatible) classifyOneByOne(ctx context.Context, txns []model.Transaction, chartOfAccounts, historicalRules string) ([]Result, error) {
	results := make([]Result, len(txns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)

	for i, txn := range txns {
		i, txn := i, txn
		g.Go(func() error {
			result, err := p.Classify(gctx, txn, chartOfAccounts, historicalRules)
			if err != nil {
				results[i] = Result{
					Account:    DefaultAccount,
					Confidence: 0.0,
					Reasoning:  err.Error(),
				}
				return nil
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// complete sends one chat-completions request and returns the raw content of
// the first choice. Transport errors retry with backoff; the rate limiter
// gates each attempt.
func (p *openAICompatible) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": p.cfg.Temperature,
		"max_tokens":  maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	err = common.WithRetry(ctx, func() error {
		if waitErr := p.rateLimiter.wait(ctx); waitErr != nil {
			return &common.RetryableError{Err: waitErr, Retryable: false}
		}

		result, callErr := p.doRequest(ctx, jsonBody)
		if callErr != nil {
			return callErr
		}
		content = result
		return nil
	}, p.retryOpts)
	if err != nil {
		return "", err
	}

	return content, nil
}

func (p *openAICompatible) doRequest(ctx context.Context, jsonBody []byte) (string, error) {
	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}

	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", common.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return "", &common.RetryableError{
			Err:       fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200)),
			Retryable: retryable,
		}
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: false}
	}

	if len(response.Choices) == 0 {
		return "", &common.RetryableError{Err: fmt.Errorf("no completion choices returned"), Retryable: false}
	}

	return response.Choices[0].Message.Content, nil
}

// chatCompletionResponse represents the chat-completions API response structure.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Close stops the provider's background rate limiter goroutine.
func (p *openAICompatible) Close() {
	p.rateLimiter.Close()
}
