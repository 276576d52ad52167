package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/beanpilot/beanpilot/internal/ai"
	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/storage"
)

// openStorage opens the configured database and runs pending migrations.
// Callers own the returned storage and must Close it.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "beanpilot", "beanpilot.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// storedAIConfig mirrors the ai_config settings payload.
type storedAIConfig struct {
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"api_base"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TimeoutSecs int     `json:"timeout_seconds"`
}

// buildProvider constructs the configured AI provider. The config file wins;
// a provider saved in the settings table is the fallback, so a database moved
// between machines keeps working without a config file.
func buildProvider(ctx context.Context, store *storage.SQLiteStorage) (ai.Provider, error) {
	name := viper.GetString("ai.provider")
	cfg := ai.Config{
		BaseURL:     viper.GetString("ai.api_base"),
		APIKey:      viper.GetString("ai.api_key"),
		Model:       viper.GetString("ai.model"),
		Temperature: viper.GetFloat64("ai.temperature"),
		RateLimit:   viper.GetInt("ai.rate_limit"),
	}
	if secs := viper.GetInt("ai.timeout_seconds"); secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	if name == "" {
		raw, err := store.GetSetting(ctx, storage.SettingAIConfig)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, fmt.Errorf("%w: no AI provider configured; set ai.provider in the config file", common.ErrMissingConfig)
			}
			return nil, err
		}
		var stored storedAIConfig
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("%w: stored ai_config is not valid JSON: %v", common.ErrInvalidConfig, err)
		}
		name = stored.Provider
		cfg.BaseURL = stored.BaseURL
		cfg.APIKey = stored.APIKey
		cfg.Model = stored.Model
		cfg.Temperature = stored.Temperature
		if stored.TimeoutSecs > 0 {
			cfg.Timeout = time.Duration(stored.TimeoutSecs) * time.Second
		}
	}

	// API keys usually live in the environment, not the config file
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("BEANPILOT_AI_API_KEY")
	}

	return ai.New(name, cfg)
}
