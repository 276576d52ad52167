package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanpilot/beanpilot/internal/common"
)

const alipayCSV = `交易时间,交易对方,商品说明,收/支,金额,交易状态
2026-03-15 12:30:00,星巴克咖啡(北京)有限公司,大杯拿铁,支出,38.00,交易成功
2026-03-15 18:05:12,滴滴出行,快车订单,支出,"1,024.50",交易成功
`

const wechatCSV = `交易时间,交易类型,交易对方,商品,收/支,金额(元),当前状态
2026-03-16 09:00:00,商户消费,美团平台商户,外卖订单,支出,¥25.80,支付成功
2026-03-16 10:30:00,,微信红包,/,收入,¥100.00,已存入零钱
`

const genericCSV = `time,peer,item,category,type,amount
2026-03-17 08:00:00,Landlord,March rent,housing,expense,3500.00
2026-03-17 09:00:00,Employer,,salary,income,12000
`

func TestParseAlipay(t *testing.T) {
	txns, err := Parse(strings.NewReader(alipayCSV), ProviderAlipay)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, ProviderAlipay, first.Provider)
	assert.Equal(t, "星巴克咖啡(北京)有限公司", first.Peer)
	assert.Equal(t, "大杯拿铁", first.Item)
	assert.Equal(t, "大杯拿铁", first.Category, "alipay has no category column, the item stands in")
	assert.Equal(t, "支出", first.Type)
	assert.Equal(t, "CNY", first.Currency)
	assert.Equal(t, "38", first.Amount.String())
	assert.Contains(t, first.RawData, "交易成功")

	// Thousands separators are stripped
	assert.Equal(t, "1024.5", txns[1].Amount.String())
}

func TestParseWeChat(t *testing.T) {
	txns, err := Parse(strings.NewReader(wechatCSV), ProviderWeChat)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.Equal(t, ProviderWeChat, first.Provider)
	assert.Equal(t, "美团平台商户", first.Peer)
	assert.Equal(t, "商户消费", first.Category)
	assert.Equal(t, "25.8", first.Amount.String(), "currency symbol is stripped")

	// Empty category falls back to the item
	assert.Equal(t, "/", txns[1].Category)
	assert.Equal(t, "100", txns[1].Amount.String())
}

func TestParseGeneric(t *testing.T) {
	txns, err := Parse(strings.NewReader(genericCSV), ProviderGeneric)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "Landlord", txns[0].Peer)
	assert.Equal(t, "housing", txns[0].Category)
	assert.Equal(t, "3500", txns[0].Amount.String())
	assert.Equal(t, "income", txns[1].Type)
}

func TestParseUnknownProviderUsesGeneric(t *testing.T) {
	txns, err := Parse(strings.NewReader(genericCSV), "some-bank")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, ProviderGeneric, txns[0].Provider)
}

func TestParseInvalidAmount(t *testing.T) {
	bad := "time,peer,item,category,type,amount\n2026-03-17,X,Y,Z,expense,not-a-number\n"

	_, err := Parse(strings.NewReader(bad), ProviderGeneric)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"38.00", "38", false},
		{"¥25.80", "25.8", false},
		{"1,024.50", "1024.5", false},
		{"  12.5  ", "12.5", false},
		{"", "0", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
