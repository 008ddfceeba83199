package service

import (
	"context"
	"testing"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/recognition"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCandidateService(repo *fakeExpenseRepo) *CandidateService {
	return NewCandidateService(repo, zap.NewNop())
}

func TestBuildScrapesAmountTokens(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	result := &recognition.Result{
		Backend: recognition.BackendLocal,
		Text:    "Turnpike toll plaza 4: $12.50, admin fee $3.00 and again $12.50",
	}

	candidates := svc.Build(result, "ref-1")
	require.Len(t, candidates, 2)
	assert.Equal(t, "12.50", models.FormatAmount(candidates[0].Amount))
	assert.Equal(t, "3.00", models.FormatAmount(candidates[1].Amount))
	assert.Equal(t, models.ExpenseTypeToll, candidates[0].DetectedType)
	assert.True(t, candidates[0].NeedsReview)
}

func TestBuildKeepsTokenOrderAndDedupes(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	result := &recognition.Result{
		Backend: recognition.BackendLocal,
		Text:    "$9.00 then $1,250.75 then $9.00 then $42",
	}

	candidates := svc.Build(result, "ref-2")
	require.Len(t, candidates, 3)
	assert.Equal(t, "9.00", models.FormatAmount(candidates[0].Amount))
	assert.Equal(t, "1250.75", models.FormatAmount(candidates[1].Amount))
	assert.Equal(t, "42", models.FormatAmount(candidates[2].Amount))
}

func TestBuildPrefersTypedFields(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	result := &recognition.Result{
		Backend: recognition.BackendGigaChat,
		Text:    "E-ZPass toll receipt total $45.50",
		Fields: map[string]recognition.Field{
			recognition.FieldAmount: {Value: "$45.50", Confidence: 95},
			recognition.FieldVendor: {Value: "E-ZPass", Confidence: 90},
			recognition.FieldType:   {Value: "toll", Confidence: 88},
			recognition.FieldDate:   {Value: "2026-08-12", Confidence: 92},
		},
	}

	candidates := svc.Build(result, "ref-3")
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "45.50", models.FormatAmount(c.Amount))
	assert.Equal(t, models.ExpenseTypeToll, c.DetectedType)
	assert.Equal(t, "E-ZPass", c.Vendor)
	assert.Equal(t, float64(95), c.Confidence)
	assert.False(t, c.NeedsReview)
	assert.Equal(t, 2026, c.Date.Year())
}

func TestBuildFlagsLowConfidenceForReview(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	result := &recognition.Result{
		Backend: recognition.BackendGigaChat,
		Text:    "blurry scan",
		Fields: map[string]recognition.Field{
			recognition.FieldAmount: {Value: "$20.00", Confidence: 79},
		},
	}

	candidates := svc.Build(result, "ref-4")
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].NeedsReview)
}

func TestBuildEmptyTextYieldsNoCandidates(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	candidates := svc.Build(&recognition.Result{Backend: recognition.BackendLocal, Text: "no amounts here"}, "ref-5")
	assert.Empty(t, candidates)
}

func TestPromoteCreatesPendingExpense(t *testing.T) {
	t.Parallel()
	repo := newFakeExpenseRepo()
	svc := newCandidateService(repo)

	candidate := models.ExpenseCandidate{
		FileRef:       "ref-6",
		ConfirmedType: models.ExpenseTypeToll,
		Amount:        decimal.RequireFromString("45.50"),
		Vendor:        "E-ZPass",
		Date:          time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Confidence:    95,
	}

	expense, err := svc.Promote(context.Background(), candidate, "Airport toll", "ops@fleet")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, expense.Status)
	assert.Equal(t, models.ExpenseTypeToll, expense.Type)
	assert.Equal(t, "45.50", models.FormatAmount(expense.Amount))
	assert.Equal(t, "ref-6", expense.ReceiptReference)
	assert.Equal(t, "ops@fleet", expense.CreatedBy)

	stored, err := repo.GetByID(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestPromoteRejectsUnconfirmedType(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	_, err := svc.Promote(context.Background(), models.ExpenseCandidate{
		Amount: decimal.RequireFromString("10"),
	}, "", "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPromoteRejectsNegativeAmount(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	_, err := svc.Promote(context.Background(), models.ExpenseCandidate{
		ConfirmedType: models.ExpenseTypeDamage,
		Amount:        decimal.RequireFromString("-5"),
	}, "", "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPromoteDefaultsDateAndDescription(t *testing.T) {
	t.Parallel()
	svc := newCandidateService(newFakeExpenseRepo())

	expense, err := svc.Promote(context.Background(), models.ExpenseCandidate{
		ConfirmedType: models.ExpenseTypeCleaning,
		Amount:        decimal.RequireFromString("30.00"),
		Vendor:        "SparkleWash",
	}, "", "ops@fleet")
	require.NoError(t, err)

	assert.Equal(t, "SparkleWash", expense.Description)
	assert.False(t, expense.DateOccurred.IsZero())
}
