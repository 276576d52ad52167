// Package ledger integrates with the external double-entry-generator CLI to
// render transactions into a beancount file.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
)

const degBinary = "double-entry-generator"

// degTimeout bounds one CLI invocation.
const degTimeout = 60 * time.Second

// Generator drives double-entry-generator over temp files: transactions go
// out as a provider-format CSV next to a YAML config, and the rendered
// beancount text comes back.
type Generator struct{}

// NewGenerator creates a ledger generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Installed reports whether the double-entry-generator binary is on PATH.
func (g *Generator) Installed() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, degBinary, "--version").Run() == nil
}

// GenerateBeancount renders transactions to beancount text via the external
// CLI. mappingYAML is the rule mapping config (see rule.Engine.ExportMapping);
// empty means the default config.
func (g *Generator) GenerateBeancount(ctx context.Context, txns []model.Transaction, provider, mappingYAML string) (string, error) {
	tempDir, err := os.MkdirTemp("", "beanpilot-deg-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	csvFile := filepath.Join(tempDir, "transactions.csv")
	if err := writeProviderCSV(csvFile, txns, provider); err != nil {
		return "", err
	}

	configFile := filepath.Join(tempDir, "config.yaml")
	if mappingYAML == "" {
		mappingYAML, err = defaultConfig()
		if err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(configFile, []byte(mappingYAML), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	outputFile := filepath.Join(tempDir, "output.beancount")

	runCtx, cancel := context.WithTimeout(ctx, degTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, degBinary,
		"translate",
		"--config", configFile,
		"--provider", provider,
		"--output", outputFile,
		csvFile,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return "", common.NewUserError("ledger generation timed out", runCtx.Err())
		case errors.Is(err, exec.ErrNotFound):
			return "", common.NewUserError("double-entry-generator not installed or not in PATH", err)
		default:
			return "", common.NewUserError(fmt.Sprintf("ledger generation failed: %s", output), err)
		}
	}

	beancount, err := os.ReadFile(outputFile)
	if err != nil {
		return "", common.NewUserError("ledger output file not generated", err)
	}

	return string(beancount), nil
}

// writeProviderCSV writes transactions in the column layout the provider
// plugin of double-entry-generator expects.
func writeProviderCSV(path string, txns []model.Transaction, provider string) error {
	f, err := os.Create(path) // #nosec G304 -- path is inside our own temp dir
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	defer w.Flush()

	var header []string
	var record func(txn model.Transaction) []string

	switch provider {
	case "alipay":
		header = []string{"交易时间", "商品说明", "收/支", "金额", "交易对方", "交易状态"}
		record = func(t model.Transaction) []string {
			return []string{t.Time, t.Item, t.Type, t.Amount.String(), t.Peer, "交易成功"}
		}
	case "wechat":
		header = []string{"交易时间", "商品", "收/支", "金额(元)", "交易类型", "交易对方", "当前状态"}
		record = func(t model.Transaction) []string {
			return []string{t.Time, t.Item, t.Type, t.Amount.String(), t.Category, t.Peer, "支付成功"}
		}
	default:
		header = []string{"time", "item", "type", "amount", "peer", "status"}
		record = func(t model.Transaction) []string {
			return []string{t.Time, t.Item, t.Type, t.Amount.String(), t.Peer, "ok"}
		}
	}

	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, txn := range txns {
		if err := w.Write(record(txn)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func defaultConfig() (string, error) {
	cfg := map[string]any{
		"mapping": map[string]any{
			"default": "Expenses:Misc",
		},
		"accounts": map[string]string{
			"alipay": "Assets:Bank:Alipay",
			"wechat": "Assets:Bank:WeChat",
		},
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize default config: %w", err)
	}
	return string(out), nil
}
