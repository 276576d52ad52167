package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanpilot/beanpilot/internal/common"
)

func TestFactoryDefaults(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		cfg         Config
		wantBaseURL string
		wantModel   string
		wantBatch   bool
		wantTimeout time.Duration
	}{
		{
			name:        "openai",
			provider:    "openai",
			cfg:         Config{APIKey: "sk-test", Model: "gpt-4o-mini"},
			wantBaseURL: "https://api.openai.com/v1",
			wantModel:   "gpt-4o-mini",
			wantBatch:   true,
			wantTimeout: 30 * time.Second,
		},
		{
			name:        "deepseek gets default model",
			provider:    "deepseek",
			cfg:         Config{APIKey: "sk-test"},
			wantBaseURL: "https://api.deepseek.com/v1",
			wantModel:   "deepseek-chat",
			wantBatch:   true,
			wantTimeout: 30 * time.Second,
		},
		{
			name:        "ollama needs no key and never batches",
			provider:    "ollama",
			cfg:         Config{Model: "qwen2.5:7b"},
			wantBaseURL: "http://localhost:11434/v1",
			wantModel:   "qwen2.5:7b",
			wantBatch:   false,
			wantTimeout: 60 * time.Second,
		},
		{
			name:        "custom keeps its endpoint",
			provider:    "custom",
			cfg:         Config{BaseURL: "https://gateway.internal/v1", APIKey: "k", Model: "m"},
			wantBaseURL: "https://gateway.internal/v1",
			wantModel:   "m",
			wantBatch:   true,
			wantTimeout: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.provider, tt.cfg)
			require.NoError(t, err)
			defer provider.Close()

			impl, ok := provider.(*openAICompatible)
			require.True(t, ok)

			assert.Equal(t, tt.wantBaseURL, impl.cfg.BaseURL)
			assert.Equal(t, tt.wantModel, impl.cfg.Model)
			assert.Equal(t, tt.wantBatch, impl.batchCapable)
			assert.Equal(t, tt.wantTimeout, impl.cfg.Timeout)
		})
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := New("anthropic", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported AI provider")
}

func TestFactoryValidation(t *testing.T) {
	// Remote endpoints require an API key
	_, err := New("openai", Config{Model: "gpt-4o-mini"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	// custom requires an explicit endpoint
	_, err = New("custom", Config{APIKey: "k", Model: "m"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = New("openai", Config{APIKey: "k", Model: "m", Temperature: 1.5})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
