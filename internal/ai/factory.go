package ai

import (
	"fmt"
	"strings"
	"time"
)

// New creates a provider instance keyed by a string identifier. DeepSeek and
// custom endpoints speak the OpenAI wire format; Ollama does too but runs
// locally, so it gets a longer timeout and always classifies one by one.
func New(name string, cfg Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		return newOpenAICompatible(cfg, true)
	case "deepseek":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.deepseek.com/v1"
		}
		if cfg.Model == "" {
			cfg.Model = "deepseek-chat"
		}
		return newOpenAICompatible(cfg, true)
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434/v1"
		}
		if cfg.Timeout == 0 {
			cfg.Timeout = 60 * time.Second
		}
		// Local models handle batch prompts poorly
		return newOpenAICompatible(cfg, false)
	case "custom":
		return newOpenAICompatible(cfg, true)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (available: openai, deepseek, ollama, custom)", name)
	}
}
