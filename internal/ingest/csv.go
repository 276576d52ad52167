// Package ingest parses provider CSV exports into transactions. Each provider
// has its own column layout; rows are mapped onto the shared transaction
// model with the original row preserved for audit.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
)

// Supported providers.
const (
	ProviderAlipay  = "alipay"
	ProviderWeChat  = "wechat"
	ProviderGeneric = "generic"
)

// alipayRow mirrors the column headers of an Alipay bill export.
type alipayRow struct {
	Time   string `csv:"交易时间"`
	Item   string `csv:"商品说明"`
	Type   string `csv:"收/支"`
	Amount string `csv:"金额"`
	Peer   string `csv:"交易对方"`
	Status string `csv:"交易状态"`
}

// wechatRow mirrors the column headers of a WeChat Pay bill export.
type wechatRow struct {
	Time     string `csv:"交易时间"`
	Item     string `csv:"商品"`
	Type     string `csv:"收/支"`
	Amount   string `csv:"金额(元)"`
	Category string `csv:"交易类型"`
	Peer     string `csv:"交易对方"`
	Status   string `csv:"当前状态"`
}

// genericRow is the fallback layout for exports beanpilot does not know.
type genericRow struct {
	Time     string `csv:"time"`
	Item     string `csv:"item"`
	Category string `csv:"category"`
	Type     string `csv:"type"`
	Amount   string `csv:"amount"`
	Peer     string `csv:"peer"`
}

// Parse reads a provider CSV export and returns new transactions ready to be
// saved. Unknown providers fall back to the generic layout.
func Parse(r io.Reader, provider string) ([]model.Transaction, error) {
	switch provider {
	case ProviderAlipay:
		return parseAlipay(r)
	case ProviderWeChat:
		return parseWeChat(r)
	case ProviderGeneric, "":
		return parseGeneric(r)
	default:
		return parseGeneric(r)
	}
}

func parseAlipay(r io.Reader) ([]model.Transaction, error) {
	var rows []alipayRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: alipay CSV: %v", common.ErrValidation, err)
	}

	txns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, err
		}
		txns = append(txns, newTransaction(ProviderAlipay, model.Transaction{
			Peer: row.Peer,
			Item: row.Item,
			// Alipay exports carry no separate category column
			Category: row.Item,
			Type:     row.Type,
			Time:     row.Time,
			Amount:   amount,
			RawData: fmt.Sprintf("time=%s item=%s type=%s amount=%s peer=%s status=%s",
				row.Time, row.Item, row.Type, row.Amount, row.Peer, row.Status),
		}))
	}

	return txns, nil
}

func parseWeChat(r io.Reader) ([]model.Transaction, error) {
	var rows []wechatRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: wechat CSV: %v", common.ErrValidation, err)
	}

	txns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, err
		}
		category := row.Category
		if category == "" {
			category = row.Item
		}
		txns = append(txns, newTransaction(ProviderWeChat, model.Transaction{
			Peer:     row.Peer,
			Item:     row.Item,
			Category: category,
			Type:     row.Type,
			Time:     row.Time,
			Amount:   amount,
			RawData: fmt.Sprintf("time=%s item=%s type=%s amount=%s peer=%s status=%s",
				row.Time, row.Item, row.Type, row.Amount, row.Peer, row.Status),
		}))
	}

	return txns, nil
}

func parseGeneric(r io.Reader) ([]model.Transaction, error) {
	var rows []genericRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: generic CSV: %v", common.ErrValidation, err)
	}

	txns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, err
		}
		txns = append(txns, newTransaction(ProviderGeneric, model.Transaction{
			Peer:     row.Peer,
			Item:     row.Item,
			Category: row.Category,
			Type:     row.Type,
			Time:     row.Time,
			Amount:   amount,
			RawData: fmt.Sprintf("time=%s item=%s category=%s type=%s amount=%s peer=%s",
				row.Time, row.Item, row.Category, row.Type, row.Amount, row.Peer),
		}))
	}

	return txns, nil
}

func newTransaction(provider string, txn model.Transaction) model.Transaction {
	txn.ID = uuid.NewString()
	txn.Provider = provider
	txn.Currency = "CNY"
	return txn
}

// parseAmount handles thousands separators and currency symbols that bill
// exports sometimes include.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "¥")
	if cleaned == "" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q: %v", common.ErrValidation, s, err)
	}

	return amount, nil
}
