package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseFilter narrows expense listings by type and date range.
type ExpenseFilter struct {
	Type    *models.ExpenseType
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

type ExpenseRepository interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	List(ctx context.Context, f ExpenseFilter) ([]*models.Expense, int, error)
	UpdateFields(ctx context.Context, e *models.Expense) error
	// TransitionStatus moves an expense from one status to another with an
	// optimistic source-status check at write time. It reports whether the
	// row was updated.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ExpenseStatus) (bool, error)
	// AssignReservation links a reservation and approves the expense in one
	// atomic write, guarded by status=pending and no existing link.
	AssignReservation(ctx context.Context, id, reservationID uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

const expenseColumns = "id, description, type, status, amount::text, date_occurred, receipt_reference, reservation_id, notes, created_by, created_at, updated_at"

type expenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExpenseRepository(db *pgxpool.Pool, logger *zap.Logger) ExpenseRepository {
	return &expenseRepository{db: db, logger: logger}
}

func (r *expenseRepository) Create(ctx context.Context, e *models.Expense) error {
	query := squirrel.Insert("expenses").
		Columns("id", "description", "type", "status", "amount", "date_occurred", "receipt_reference", "reservation_id", "notes", "created_by", "created_at", "updated_at").
		Values(e.ID, e.Description, e.Type, e.Status, models.FormatAmount(e.Amount), e.DateOccurred, e.ReceiptReference, e.ReservationID, e.Notes, e.CreatedBy, e.CreatedAt, e.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	query := squirrel.Select(expenseColumns).
		From("expenses").
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	e, err := scanExpense(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("expense %s not found", id)
	}
	return e, err
}

func (r *expenseRepository) List(ctx context.Context, f ExpenseFilter) ([]*models.Expense, int, error) {
	base := squirrel.Select().
		From("expenses").
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)
	if f.Type != nil {
		base = base.Where(squirrel.Eq{"type": *f.Type})
	}
	if f.From != nil {
		base = base.Where(squirrel.GtOrEq{"date_occurred": *f.From})
	}
	if f.To != nil {
		base = base.Where(squirrel.LtOrEq{"date_occurred": *f.To})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.PerPage
	listSQL, listArgs, err := base.Columns(expenseColumns).
		OrderBy("date_occurred DESC", "created_at DESC").
		Limit(uint64(f.PerPage)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

func (r *expenseRepository) UpdateFields(ctx context.Context, e *models.Expense) error {
	query := squirrel.Update("expenses").
		Set("description", e.Description).
		Set("type", e.Type).
		Set("status", e.Status).
		Set("amount", models.FormatAmount(e.Amount)).
		Set("date_occurred", e.DateOccurred).
		Set("notes", e.Notes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": e.ID}).
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("expense %s not found", e.ID)
	}
	return nil
}

func (r *expenseRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ExpenseStatus) (bool, error) {
	query := squirrel.Update("expenses").
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *expenseRepository) AssignReservation(ctx context.Context, id, reservationID uuid.UUID) (bool, error) {
	// Single guarded UPDATE: link and approval land together or not at all.
	query := squirrel.Update("expenses").
		Set("reservation_id", reservationID).
		Set("status", models.StatusApproved).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": models.StatusPending}).
		Where("reservation_id IS NULL").
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *expenseRepository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := squirrel.Update("expenses").
		Set("deleted_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	var amount string
	if err := row.Scan(
		&e.ID, &e.Description, &e.Type, &e.Status, &amount, &e.DateOccurred,
		&e.ReceiptReference, &e.ReservationID, &e.Notes, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	e.Amount = dec
	return &e, nil
}
