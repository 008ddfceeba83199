package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportXLSX(t *testing.T) {
	t.Parallel()
	repo := newFakeExpenseRepo()
	svc := NewExportService(repo, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Expense{
		ID:           uuid.New(),
		Description:  "Airport toll",
		Type:         models.ExpenseTypeToll,
		Status:       models.StatusApproved,
		Amount:       decimal.RequireFromString("45.50"),
		DateOccurred: time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "ops@fleet",
	}))

	data, err := svc.ExportXLSX(ctx, repository.ExpenseFilter{Page: 1, PerPage: 100})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Date Occurred", rows[0][0])
	assert.Equal(t, "2026-08-12", rows[1][0])
	assert.Equal(t, "toll", rows[1][1])
	assert.Equal(t, "approved", rows[1][2])
	assert.Equal(t, "45.50", rows[1][4])
}

func TestExportXLSXEmptyFilter(t *testing.T) {
	t.Parallel()
	svc := NewExportService(newFakeExpenseRepo(), zap.NewNop())

	data, err := svc.ExportXLSX(context.Background(), repository.ExpenseFilter{Page: 1, PerPage: 100})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
