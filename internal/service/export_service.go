package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportService produces XLSX workbooks of expenses for reporting.
type ExportService struct {
	expenseRepo repository.ExpenseRepository
	logger      *zap.Logger
}

func NewExportService(expenseRepo repository.ExpenseRepository, logger *zap.Logger) *ExportService {
	return &ExportService{expenseRepo: expenseRepo, logger: logger}
}

// ExportXLSX returns a workbook with the expenses matching the filter.
func (s *ExportService) ExportXLSX(ctx context.Context, filter repository.ExpenseFilter) ([]byte, error) {
	start := time.Now()

	expenses, _, err := s.expenseRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Expenses"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Date Occurred",
		"Type",
		"Status",
		"Description",
		"Amount",
		"Reservation",
		"Created By",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, e := range expenses {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, e.DateOccurred.Format("2006-01-02"))
		write(2, string(e.Type))
		write(3, string(e.Status))
		write(4, e.Description)
		write(5, models.FormatAmount(e.Amount))
		if e.ReservationID != nil {
			write(6, e.ReservationID.String())
		}
		write(7, e.CreatedBy)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	s.logger.Info("expenses exported",
		zap.Int("count", len(expenses)),
		zap.Duration("took", time.Since(start)),
	)
	return buf.Bytes(), nil
}
