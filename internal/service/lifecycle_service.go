package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateExpenseParams is a manual expense entry.
type CreateExpenseParams struct {
	Description      string
	Type             models.ExpenseType
	Amount           decimal.Decimal
	DateOccurred     time.Time
	ReceiptReference string
	Notes            string
}

// EditExpenseParams carries the fields an edit may touch. Nil means leave
// unchanged. Status is only applied when explicitly requested and still obeys
// the transition rules.
type EditExpenseParams struct {
	Description  *string
	Type         *models.ExpenseType
	Amount       *decimal.Decimal
	DateOccurred *time.Time
	Notes        *string
	Status       *models.ExpenseStatus
}

// AssignTarget names the reservation to link, by id or by number.
type AssignTarget struct {
	ReservationID     *uuid.UUID
	ReservationNumber string
}

// LifecycleService owns the expense status state machine. All expense
// mutations go through it; it never retries on its own.
type LifecycleService struct {
	expenseRepo     repository.ExpenseRepository
	reservationRepo repository.ReservationRepository
	audit           *AuditService
	logger          *zap.Logger
}

func NewLifecycleService(expenseRepo repository.ExpenseRepository, reservationRepo repository.ReservationRepository, audit *AuditService, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		expenseRepo:     expenseRepo,
		reservationRepo: reservationRepo,
		audit:           audit,
		logger:          logger,
	}
}

// Create persists a manually entered expense in status pending.
func (s *LifecycleService) Create(ctx context.Context, params CreateExpenseParams, actor string) (*models.Expense, error) {
	if params.Type == "" {
		return nil, apperr.Validation("expense type is required")
	}
	if _, ok := models.ParseExpenseType(string(params.Type)); !ok {
		return nil, apperr.Validation("unknown expense type %q", params.Type)
	}
	if params.Amount.IsNegative() {
		return nil, apperr.Validation("amount must not be negative")
	}
	if params.DateOccurred.IsZero() {
		return nil, apperr.Validation("date occurred is required")
	}

	now := time.Now().UTC()
	expense := &models.Expense{
		ID:               uuid.New(),
		Description:      sanitizeUTF8(params.Description),
		Type:             params.Type,
		Status:           models.StatusPending,
		Amount:           params.Amount,
		DateOccurred:     params.DateOccurred,
		ReceiptReference: params.ReceiptReference,
		Notes:            sanitizeUTF8(params.Notes),
		CreatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *LifecycleService) Get(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	return s.expenseRepo.GetByID(ctx, id)
}

func (s *LifecycleService) List(ctx context.Context, filter repository.ExpenseFilter) ([]*models.Expense, int, error) {
	return s.expenseRepo.List(ctx, filter)
}

// Assign links a pending expense to a reservation and approves it in one
// atomic transition. Two concurrent assigns on the same expense are
// serialized by an optimistic status check at write time: the loser receives
// a conflict and its state stays untouched.
func (s *LifecycleService) Assign(ctx context.Context, expenseID uuid.UUID, target AssignTarget, actor string) (*models.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.ReservationID != nil {
		return nil, apperr.Conflict("expense already assigned to a reservation")
	}
	if expense.Status != models.StatusPending {
		return nil, apperr.InvalidTransition("cannot assign expense in status %s", expense.Status)
	}

	reservation, err := s.resolveReservation(ctx, target)
	if err != nil {
		return nil, err
	}

	ok, err := s.expenseRepo.AssignReservation(ctx, expenseID, reservation.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race or the state moved underneath us; re-read to tell
		// which.
		current, gerr := s.expenseRepo.GetByID(ctx, expenseID)
		if gerr == nil && current.ReservationID != nil {
			return nil, apperr.Conflict("expense already assigned to a reservation")
		}
		return nil, apperr.InvalidTransition("expense is no longer pending")
	}

	payload := fmt.Sprintf("%s -> %s (assigned to %s)", models.StatusPending, models.StatusApproved, reservation.ReservationNumber)
	if err := s.audit.RecordStatusChange(ctx, expenseID, actor, payload); err != nil {
		s.logger.Warn("failed to record assign event", zap.String("expense_id", expenseID.String()), zap.Error(err))
	}

	s.logger.Info("expense assigned",
		zap.String("expense_id", expenseID.String()),
		zap.String("reservation", reservation.ReservationNumber),
	)
	return s.expenseRepo.GetByID(ctx, expenseID)
}

func (s *LifecycleService) resolveReservation(ctx context.Context, target AssignTarget) (*models.Reservation, error) {
	if target.ReservationID != nil {
		return s.reservationRepo.GetByID(ctx, *target.ReservationID)
	}
	if target.ReservationNumber != "" {
		return s.reservationRepo.GetByNumber(ctx, target.ReservationNumber)
	}
	return nil, apperr.Validation("reservation_id or reservation_number is required")
}

func (s *LifecycleService) Approve(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error) {
	return s.transition(ctx, id, models.StatusApproved, actor)
}

func (s *LifecycleService) Reject(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error) {
	return s.transition(ctx, id, models.StatusRejected, actor)
}

func (s *LifecycleService) MarkUnbillable(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error) {
	return s.transition(ctx, id, models.StatusUnbillable, actor)
}

func (s *LifecycleService) MarkInvoiced(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error) {
	return s.transition(ctx, id, models.StatusInvoiced, actor)
}

func (s *LifecycleService) MarkPaid(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error) {
	return s.transition(ctx, id, models.StatusPaid, actor)
}

func (s *LifecycleService) transition(ctx context.Context, id uuid.UUID, to models.ExpenseStatus, actor string) (*models.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(expense.Status, to) {
		return nil, apperr.InvalidTransition("cannot move expense from %s to %s", expense.Status, to)
	}

	ok, err := s.expenseRepo.TransitionStatus(ctx, id, expense.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidTransition("expense is no longer in status %s", expense.Status)
	}

	payload := fmt.Sprintf("%s -> %s", expense.Status, to)
	if err := s.audit.RecordStatusChange(ctx, id, actor, payload); err != nil {
		s.logger.Warn("failed to record status event", zap.String("expense_id", id.String()), zap.Error(err))
	}

	s.logger.Info("expense transitioned",
		zap.String("expense_id", id.String()),
		zap.String("from", string(expense.Status)),
		zap.String("to", string(to)),
	)
	return s.expenseRepo.GetByID(ctx, id)
}

// Edit updates fields on a non-terminal expense. Identical edits are
// idempotent; validation failures leave the entity untouched.
func (s *LifecycleService) Edit(ctx context.Context, id uuid.UUID, params EditExpenseParams, actor string) (*models.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status.IsTerminal() {
		return nil, apperr.InvalidTransition("cannot edit expense in terminal status %s", expense.Status)
	}

	if params.Amount != nil && params.Amount.IsNegative() {
		return nil, apperr.Validation("amount must not be negative")
	}
	if params.DateOccurred != nil && params.DateOccurred.IsZero() {
		return nil, apperr.Validation("date occurred must be a valid date")
	}
	if params.Type != nil {
		if _, ok := models.ParseExpenseType(string(*params.Type)); !ok {
			return nil, apperr.Validation("unknown expense type %q", *params.Type)
		}
	}

	statusChanged := false
	if params.Status != nil && *params.Status != expense.Status {
		if !models.CanTransition(expense.Status, *params.Status) {
			return nil, apperr.InvalidTransition("cannot move expense from %s to %s", expense.Status, *params.Status)
		}
		statusChanged = true
	}

	previous := expense.Status
	if params.Description != nil {
		expense.Description = sanitizeUTF8(*params.Description)
	}
	if params.Type != nil {
		expense.Type = *params.Type
	}
	if params.Amount != nil {
		expense.Amount = *params.Amount
	}
	if params.DateOccurred != nil {
		expense.DateOccurred = *params.DateOccurred
	}
	if params.Notes != nil {
		expense.Notes = sanitizeUTF8(*params.Notes)
	}
	if statusChanged {
		expense.Status = *params.Status
	}

	if err := s.expenseRepo.UpdateFields(ctx, expense); err != nil {
		return nil, err
	}

	if statusChanged {
		payload := fmt.Sprintf("%s -> %s", previous, expense.Status)
		if err := s.audit.RecordStatusChange(ctx, id, actor, payload); err != nil {
			s.logger.Warn("failed to record status event", zap.String("expense_id", id.String()), zap.Error(err))
		}
	}
	return expense, nil
}

// Delete soft-deletes the expense, leaving the row as a tombstone and a
// deletion note in the ledger.
func (s *LifecycleService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	ok, err := s.expenseRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("expense %s not found", id)
	}

	ev := fmt.Sprintf("expense deleted by %s", actor)
	if err := s.audit.RecordStatusChange(ctx, id, actor, ev); err != nil {
		s.logger.Warn("failed to record deletion event", zap.String("expense_id", id.String()), zap.Error(err))
	}

	s.logger.Info("expense deleted", zap.String("expense_id", id.String()), zap.String("actor", actor))
	return nil
}
