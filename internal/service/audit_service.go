package service

import (
	"context"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService is the append-only ledger of notes and status-change events
// per expense.
type AuditService struct {
	auditRepo   repository.AuditRepository
	expenseRepo repository.ExpenseRepository
	logger      *zap.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, expenseRepo repository.ExpenseRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo:   auditRepo,
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

// AppendNote records an operator note. Notes are status-independent and the
// empty string is a valid note.
func (s *AuditService) AppendNote(ctx context.Context, expenseID uuid.UUID, actor, text string) (*models.AuditEvent, error) {
	if _, err := s.expenseRepo.GetByID(ctx, expenseID); err != nil {
		return nil, err
	}

	ev := &models.AuditEvent{
		ID:        uuid.New(),
		ExpenseID: expenseID,
		Actor:     actor,
		Kind:      models.AuditKindNote,
		Payload:   sanitizeUTF8(text),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.auditRepo.Append(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// RecordStatusChange appends a status-change event on behalf of the
// lifecycle operations.
func (s *AuditService) RecordStatusChange(ctx context.Context, expenseID uuid.UUID, actor, payload string) error {
	ev := &models.AuditEvent{
		ID:        uuid.New(),
		ExpenseID: expenseID,
		Actor:     actor,
		Kind:      models.AuditKindStatusChange,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	return s.auditRepo.Append(ctx, ev)
}

// List returns the expense's events oldest-first.
func (s *AuditService) List(ctx context.Context, expenseID uuid.UUID) ([]*models.AuditEvent, error) {
	if _, err := s.expenseRepo.GetByID(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByExpense(ctx, expenseID)
}
