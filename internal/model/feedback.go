package model

import "time"

// FeedbackAction is the kind of signal a user gave on a classification.
type FeedbackAction string

// Feedback action constants.
const (
	FeedbackAccept FeedbackAction = "accept"
	FeedbackReject FeedbackAction = "reject"
	FeedbackModify FeedbackAction = "modify"
)

// Valid reports whether the action is one of the known kinds.
func (a FeedbackAction) Valid() bool {
	switch a {
	case FeedbackAccept, FeedbackReject, FeedbackModify:
		return true
	}
	return false
}

// Feedback is an immutable user signal against a transaction's most recent
// classification. CorrectedAccount is set only for modify actions.
type Feedback struct {
	CreatedAt        time.Time
	ID               string
	TransactionID    string
	Action           FeedbackAction
	OriginalAccount  string
	CorrectedAccount string
}
