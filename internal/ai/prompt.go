package ai

import (
	"fmt"
	"strings"

	"github.com/beanpilot/beanpilot/internal/model"
)

const systemPrompt = "You are a professional financial accounting assistant, responsible for classifying transactions into Beancount accounts."

const classificationPromptTemplate = `You are a professional financial accounting assistant, responsible for classifying transactions into Beancount accounts.

User chart of accounts:
%s

Historical classification rules:
%s

Transaction to classify:
- Payee: %s
- Item: %s
- Category: %s
- Transaction type: %s
- Time: %s
- Amount: %s

Please analyze the above transaction, select the most appropriate account from the chart of accounts, and provide a confidence score (0-1).

Output format (JSON):
{
  "account": "Expenses:Food:Dining",
  "confidence": 0.95,
  "reasoning": "Explain the classification reason"
}

Return only JSON, do not include any other content.`

const batchPromptTemplate = `You are a professional financial accounting assistant, responsible for classifying multiple transactions into Beancount accounts.

User chart of accounts:
%s

Historical classification rules:
%s

List of transactions to classify:
%s

Please analyze the above transactions, for each transaction select the most appropriate account from the chart of accounts, and provide a confidence score (0-1).

Output format (JSON array):
[
  {
    "index": 0,
    "account": "Expenses:Food:Dining",
    "confidence": 0.95,
    "reasoning": "Explain the classification reason"
  }
]

Return only JSON array, do not include any other content.`

// buildClassificationPrompt renders the single-transaction prompt.
func buildClassificationPrompt(txn model.Transaction, chartOfAccounts, historicalRules string) string {
	return fmt.Sprintf(classificationPromptTemplate,
		chartOfAccounts,
		historicalRules,
		txn.Peer,
		txn.Item,
		txn.Category,
		txn.Type,
		txn.Time,
		txn.Amount.String(),
	)
}

// buildBatchPrompt renders the multi-transaction prompt with indexed entries.
func buildBatchPrompt(txns []model.Transaction, chartOfAccounts, historicalRules string) string {
	lines := make([]string, 0, len(txns))
	for i, txn := range txns {
		lines = append(lines, fmt.Sprintf(
			"%d. Payee: %s, Item: %s, Category: %s, Transaction type: %s, Time: %s, Amount: %s",
			i, txn.Peer, txn.Item, txn.Category, txn.Type, txn.Time, txn.Amount.String(),
		))
	}

	return fmt.Sprintf(batchPromptTemplate,
		chartOfAccounts,
		historicalRules,
		strings.Join(lines, "\n"),
	)
}
