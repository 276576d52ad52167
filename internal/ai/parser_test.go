package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Result
	}{
		{
			name:    "clean JSON",
			content: `{"account": "Expenses:Food:Dining", "confidence": 0.9, "reasoning": "coffee shop"}`,
			want:    Result{Account: "Expenses:Food:Dining", Confidence: 0.9, Reasoning: "coffee shop"},
		},
		{
			name:    "markdown fenced",
			content: "```json\n{\"account\": \"Expenses:Transport:Taxi\", \"confidence\": 0.8}\n```",
			want:    Result{Account: "Expenses:Transport:Taxi", Confidence: 0.8},
		},
		{
			name:    "surrounded by prose",
			content: `Here is my answer: {"account": "Income:Salary", "confidence": 1.0} Hope that helps!`,
			want:    Result{Account: "Income:Salary", Confidence: 1.0},
		},
		{
			name:    "braces inside string values",
			content: `{"account": "Expenses:Misc", "reasoning": "looks like {unknown} merchant", "confidence": 0.4}`,
			want:    Result{Account: "Expenses:Misc", Confidence: 0.4, Reasoning: "looks like {unknown} merchant"},
		},
		{
			name:    "missing account defaults without inventing confidence",
			content: `{"reasoning": "no idea"}`,
			want:    Result{Account: DefaultAccount, Confidence: 0, Reasoning: "no idea"},
		},
		{
			name:    "missing confidence with real account gets 0.5",
			content: `{"account": "Expenses:Food:Dining"}`,
			want:    Result{Account: "Expenses:Food:Dining", Confidence: 0.5},
		},
		{
			name:    "confidence clamped to one",
			content: `{"account": "Expenses:Food:Dining", "confidence": 3.2}`,
			want:    Result{Account: "Expenses:Food:Dining", Confidence: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseClassification(tt.content))
		})
	}
}

func TestParseClassificationGarbage(t *testing.T) {
	got := parseClassification("I cannot classify this transaction, sorry.")

	assert.Equal(t, DefaultAccount, got.Account)
	assert.Zero(t, got.Confidence)
	assert.Contains(t, got.Reasoning, "parse failed:")
	assert.Contains(t, got.Reasoning, "I cannot classify")
}

func TestParseBatchClassification(t *testing.T) {
	content := "```json\n" + `[
		{"index": 0, "account": "Expenses:Food:Dining", "confidence": 0.9, "reasoning": "restaurant"},
		{"index": 1, "account": "Expenses:Transport:Taxi", "confidence": 0.8, "reasoning": "ride"}
	]` + "\n```"

	results := parseBatchClassification(content)
	require.Len(t, results, 2)
	assert.Equal(t, "Expenses:Food:Dining", results[0].Account)
	assert.Equal(t, "Expenses:Transport:Taxi", results[1].Account)
	assert.Equal(t, 0.8, results[1].Confidence)
}

func TestParseBatchClassificationGarbage(t *testing.T) {
	assert.Nil(t, parseBatchClassification("not JSON at all"))
	assert.Nil(t, parseBatchClassification(`{"account": "Expenses:Misc"}`))
}

func TestExtractJSON(t *testing.T) {
	got, ok := extractJSON(`prefix {"a": {"b": 1}} suffix`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	got, ok = extractJSON(`{"s": "closing } inside string"}`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"s": "closing } inside string"}`, got)

	_, ok = extractJSON(`{"unterminated": true`, '{', '}')
	assert.False(t, ok)

	_, ok = extractJSON("no json here", '{', '}')
	assert.False(t, ok)
}
