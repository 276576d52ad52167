package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/beanpilot/beanpilot/internal/model"
)

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			ID:     "t1",
			Peer:   "星巴克咖啡",
			Item:   "大杯拿铁",
			Type:   "支出",
			Time:   "2026-03-15 12:30:00",
			Amount: decimal.NewFromFloat(38.00),
		},
		{
			ID:       "t2",
			Peer:     "滴滴出行",
			Item:     "快车订单",
			Category: "交通出行",
			Type:     "支出",
			Time:     "2026-03-15 18:05:12",
			Amount:   decimal.NewFromFloat(24.50),
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteProviderCSVAlipay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alipay.csv")
	require.NoError(t, writeProviderCSV(path, sampleTransactions(), "alipay"))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"交易时间", "商品说明", "收/支", "金额", "交易对方", "交易状态"}, rows[0])
	assert.Equal(t, []string{"2026-03-15 12:30:00", "大杯拿铁", "支出", "38", "星巴克咖啡", "交易成功"}, rows[1])
}

func TestWriteProviderCSVWeChat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wechat.csv")
	require.NoError(t, writeProviderCSV(path, sampleTransactions(), "wechat"))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"交易时间", "商品", "收/支", "金额(元)", "交易类型", "交易对方", "当前状态"}, rows[0])
	assert.Equal(t, "交通出行", rows[2][4])
}

func TestWriteProviderCSVGenericFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generic.csv")
	require.NoError(t, writeProviderCSV(path, sampleTransactions(), "somebank"))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"time", "item", "type", "amount", "peer", "status"}, rows[0])
}

func TestDefaultConfig(t *testing.T) {
	out, err := defaultConfig()
	require.NoError(t, err)

	var cfg struct {
		Mapping  map[string]string `yaml:"mapping"`
		Accounts map[string]string `yaml:"accounts"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))

	assert.Equal(t, "Expenses:Misc", cfg.Mapping["default"])
	assert.Equal(t, "Assets:Bank:Alipay", cfg.Accounts["alipay"])
	assert.Equal(t, "Assets:Bank:WeChat", cfg.Accounts["wechat"])
}
