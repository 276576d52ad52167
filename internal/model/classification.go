package model

import "time"

// ClassificationSource indicates where a classification decision came from.
type ClassificationSource string

// Classification source constants.
const (
	SourceAI   ClassificationSource = "ai"
	SourceRule ClassificationSource = "rule"
	SourceUser ClassificationSource = "user"
)

// Classification records a single classification attempt for one transaction.
// Many classifications may exist per transaction; the most recently created
// one wins for display. Rows are append-only except for the single documented
// feedback-driven retarget.
type Classification struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	Account       string
	Source        ClassificationSource
	Reasoning     string
	Confidence    float64
}

// Result is the outcome of one classify call before it is persisted.
type Result struct {
	Account    string
	Reasoning  string
	Source     ClassificationSource
	Confidence float64
}
