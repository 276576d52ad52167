package classify

import (
	"context"
	"sync"

	"github.com/beanpilot/beanpilot/internal/ai"
	"github.com/beanpilot/beanpilot/internal/model"
)

// mockProvider is a scriptable ai.Provider for coordinator tests.
type mockProvider struct {
	mu sync.Mutex

	classifyFunc      func(txn model.Transaction) (ai.Result, error)
	batchClassifyFunc func(txns []model.Transaction) ([]ai.Result, error)

	classifyCalls int
	batchCalls    int
	lastChart     string
	lastRules     string
}

func (m *mockProvider) Classify(_ context.Context, txn model.Transaction, chart, rules string) (ai.Result, error) {
	m.mu.Lock()
	m.classifyCalls++
	m.lastChart = chart
	m.lastRules = rules
	m.mu.Unlock()

	if m.classifyFunc != nil {
		return m.classifyFunc(txn)
	}
	return ai.Result{Account: "Expenses:Food:Dining", Reasoning: "mock", Confidence: 0.8}, nil
}

func (m *mockProvider) BatchClassify(_ context.Context, txns []model.Transaction, chart, rules string) ([]ai.Result, error) {
	m.mu.Lock()
	m.batchCalls++
	m.lastChart = chart
	m.lastRules = rules
	m.mu.Unlock()

	if m.batchClassifyFunc != nil {
		return m.batchClassifyFunc(txns)
	}

	results := make([]ai.Result, len(txns))
	for i := range txns {
		results[i] = ai.Result{Account: "Expenses:Food:Dining", Reasoning: "mock", Confidence: 0.8}
	}
	return results, nil
}

func (m *mockProvider) ValidateConfig() error { return nil }

func (m *mockProvider) Close() {}
