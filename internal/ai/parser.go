package ai

import (
	"encoding/json"
	"strings"
)

// parseClassification extracts a classification result from raw LLM output.
// Models routinely wrap JSON in markdown fences or surround it with prose, so
// the parser strips fences, then falls back to extracting the outermost JSON
// object. Parse failure is not an error: the caller gets a degraded result
// carrying the unparseable text, so one bad response never fails a batch.
func parseClassification(content string) Result {
	cleaned := stripMarkdownFences(content)
	if extracted, ok := extractJSON(cleaned, '{', '}'); ok {
		cleaned = extracted
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return Result{
			Account:    DefaultAccount,
			Confidence: 0.0,
			Reasoning:  "parse failed: " + truncate(content, 100),
		}
	}

	applyDefaults(&result)
	return result
}

// batchItem matches one element of the batch response array; the index field the
// prompt asks for is accepted but positional order is what callers rely on.
type batchItem struct {
	Account    string  `json:"account"`
	Reasoning  string  `json:"reasoning"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// parseBatchClassification extracts an array of results from raw LLM output.
// An unparseable response returns an empty slice; the provider treats that as
// a count mismatch and falls back to one-by-one classification.
func parseBatchClassification(content string) []Result {
	cleaned := stripMarkdownFences(content)
	if extracted, ok := extractJSON(cleaned, '[', ']'); ok {
		cleaned = extracted
	}

	var items []batchItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		result := Result{
			Account:    item.Account,
			Confidence: item.Confidence,
			Reasoning:  item.Reasoning,
		}
		applyDefaults(&result)
		results = append(results, result)
	}

	return results
}

// applyDefaults fills required fields the model omitted.
func applyDefaults(r *Result) {
	if r.Account == "" {
		r.Account = DefaultAccount
	}
	if r.Confidence == 0 && r.Account != DefaultAccount {
		r.Confidence = 0.5
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}

// stripMarkdownFences removes ```json ... ``` wrappers.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// extractJSON returns the outermost balanced open..close span, if any.
func extractJSON(content string, open, close byte) (string, bool) {
	start := strings.IndexByte(content, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}

	return "", false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
