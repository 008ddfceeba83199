package repository

import (
	"context"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuditRepository is append-only. There is deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, ev *models.AuditEvent) error
	ListByExpense(ctx context.Context, expenseID uuid.UUID) ([]*models.AuditEvent, error)
}

type auditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAuditRepository(db *pgxpool.Pool, logger *zap.Logger) AuditRepository {
	return &auditRepository{db: db, logger: logger}
}

func (r *auditRepository) Append(ctx context.Context, ev *models.AuditEvent) error {
	query := squirrel.Insert("audit_events").
		Columns("id", "expense_id", "actor", "kind", "payload", "created_at").
		Values(ev.ID, ev.ExpenseID, ev.Actor, ev.Kind, ev.Payload, ev.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *auditRepository) ListByExpense(ctx context.Context, expenseID uuid.UUID) ([]*models.AuditEvent, error) {
	query := squirrel.Select("id", "expense_id", "actor", "kind", "payload", "created_at").
		From("audit_events").
		Where(squirrel.Eq{"expense_id": expenseID}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var ev models.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.ExpenseID, &ev.Actor, &ev.Kind, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
