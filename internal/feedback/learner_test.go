package feedback

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanpilot/beanpilot/internal/common"
	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/rule"
	"github.com/beanpilot/beanpilot/internal/service"
	"github.com/beanpilot/beanpilot/internal/testutil"
)

func newTestLearner(t *testing.T) (*Learner, service.Storage) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	rules := rule.NewEngine(store, nil)
	return NewLearner(store, rules, nil), store
}

func saveClassified(t *testing.T, store service.Storage, peer, item, account string) model.Transaction {
	t.Helper()
	txn := testutil.SaveTransaction(t, store, model.Transaction{
		ID:   uuid.NewString(),
		Peer: peer,
		Item: item,
	})
	c := &model.Classification{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		Account:       account,
		Source:        model.SourceAI,
		Confidence:    0.7,
	}
	require.NoError(t, store.SaveClassification(context.Background(), c))
	return txn
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	learner, _ := newTestLearner(t)

	_, err := learner.Record(context.Background(), "t1", "", "", model.FeedbackAction("approve"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRecordAccept(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	txn := saveClassified(t, store, "星巴克", "拿铁", "Expenses:Food:Dining")

	fb, err := learner.Record(ctx, txn.ID, "Expenses:Food:Dining", "", model.FeedbackAccept)
	require.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.Equal(t, model.FeedbackAccept, fb.Action)

	stored, err := store.GetFeedbackByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Expenses:Food:Dining", stored[0].OriginalAccount)
}

func TestRecordModifyRetargetsLatestClassification(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	txn := saveClassified(t, store, "滴滴", "快车", "Expenses:Food:Dining")

	_, err := learner.Record(ctx, txn.ID, "Expenses:Food:Dining", "Expenses:Transport:Taxi", model.FeedbackModify)
	require.NoError(t, err)

	latest, err := store.GetLatestClassification(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expenses:Transport:Taxi", latest.Account)
	assert.Equal(t, model.SourceUser, latest.Source, "a retargeted classification is user-sourced")
}

func TestRecordModifyWithoutClassificationStillStands(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	txn := testutil.SaveTransaction(t, store, model.Transaction{ID: uuid.NewString(), Peer: "未知商户"})

	_, err := learner.Record(ctx, txn.ID, "", "Expenses:Misc", model.FeedbackModify)
	require.NoError(t, err, "no classification to retarget is not an error")

	stored, err := store.GetFeedbackByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestStatistics(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	empty, err := learner.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AcceptRate)

	actions := []model.FeedbackAction{
		model.FeedbackAccept, model.FeedbackAccept, model.FeedbackAccept,
		model.FeedbackModify,
		model.FeedbackReject,
	}
	for i, action := range actions {
		txn := saveClassified(t, store, fmt.Sprintf("商户%d", i), "", "Expenses:Misc")
		corrected := ""
		if action == model.FeedbackModify {
			corrected = "Expenses:Food:Dining"
		}
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", corrected, action)
		require.NoError(t, err)
	}

	stats, err := learner.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Accept)
	assert.Equal(t, 1, stats.Reject)
	assert.Equal(t, 1, stats.Modify)
	assert.InDelta(t, 0.6, stats.AcceptRate, 1e-9)
	assert.InDelta(t, 0.2, stats.ModifyRate, 1e-9)
}

func TestGenerateRulesThresholdAndAgreement(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	// Three consistent corrections for the same pattern: qualifies
	for n := 0; n < 3; n++ {
		txn := saveClassified(t, store, "星巴克", "拿铁", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "Expenses:Food:Dining", model.FeedbackModify)
		require.NoError(t, err)
	}

	// Only two corrections: below the threshold
	for n := 0; n < 2; n++ {
		txn := saveClassified(t, store, "滴滴", "快车", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "Expenses:Transport:Taxi", model.FeedbackModify)
		require.NoError(t, err)
	}

	// Three corrections that disagree: skipped
	for _, account := range []string{"Expenses:Food:Dining", "Expenses:Food:Dining", "Expenses:Food:Groceries"} {
		txn := saveClassified(t, store, "美团", "外卖", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", account, model.FeedbackModify)
		require.NoError(t, err)
	}

	created, err := learner.GenerateRules(ctx, DefaultMinOccurrences)
	require.NoError(t, err)
	require.Len(t, created, 1)

	got := created[0]
	assert.Equal(t, model.RuleSourceAuto, got.Source)
	assert.Equal(t, "Expenses:Food:Dining", got.Account)
	assert.Equal(t, []string{"星巴克"}, got.Conditions.Peer)
	assert.Equal(t, []string{"拿铁"}, got.Conditions.Item)
}

func TestGenerateRulesSkipsEmptyCorrections(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	// A qualifying group whose agreed correction is empty cannot become a
	// rule and must not fail mining for the groups that can
	for n := 0; n < 3; n++ {
		txn := saveClassified(t, store, "滴滴", "快车", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "", model.FeedbackModify)
		require.NoError(t, err)
	}

	for n := 0; n < 3; n++ {
		txn := saveClassified(t, store, "星巴克", "拿铁", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "Expenses:Food:Dining", model.FeedbackModify)
		require.NoError(t, err)
	}

	created, err := learner.GenerateRules(ctx, 3)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, []string{"星巴克"}, created[0].Conditions.Peer)
	assert.Equal(t, "Expenses:Food:Dining", created[0].Account)
}

func TestGenerateRulesSkipsPatternlessTransactions(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		txn := saveClassified(t, store, "", "", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "Expenses:Food:Dining", model.FeedbackModify)
		require.NoError(t, err)
	}

	created, err := learner.GenerateRules(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, created, "a group with no peer, item, or category cannot become a rule")
}

func TestGenerateRulesIgnoresAcceptAndReject(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	for n := 0; n < 4; n++ {
		txn := saveClassified(t, store, "星巴克", "拿铁", "Expenses:Food:Dining")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Food:Dining", "", model.FeedbackAccept)
		require.NoError(t, err)
	}

	created, err := learner.GenerateRules(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestGenerateRulesSkipsDeletedTransactions(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	var lastID string
	for n := 0; n < 3; n++ {
		txn := saveClassified(t, store, "星巴克", "拿铁", "Expenses:Misc")
		_, err := learner.Record(ctx, txn.ID, "Expenses:Misc", "Expenses:Food:Dining", model.FeedbackModify)
		require.NoError(t, err)
		lastID = txn.ID
	}

	// Deleting one transaction drops its feedback below the threshold
	deleted, err := store.DeleteTransaction(ctx, lastID)
	require.NoError(t, err)
	require.True(t, deleted)

	created, err := learner.GenerateRules(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, created)
}
