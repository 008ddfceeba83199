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
	"go.uber.org/zap"
)

// ReservationSearch selects reservations whose start date falls inside the
// window OR whose number, vehicle or guest name contains Query
// (case-insensitive). Window bounds are calendar-day midnights; the end day
// counts in full, so intraday start times on it still match.
// Zero-value window means text-only search.
type ReservationSearch struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Query       string
	Page        int
	PerPage     int
}

// ReservationRepository mirrors reservations owned by the booking system.
// The API surface treats them as a read-only matching target; Upsert exists
// for the import path that syncs the mirror.
type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetByNumber(ctx context.Context, number string) (*models.Reservation, error)
	Search(ctx context.Context, p ReservationSearch) ([]*models.Reservation, bool, error)
	List(ctx context.Context, page, perPage int) ([]*models.Reservation, bool, error)
	Upsert(ctx context.Context, res *models.Reservation) error
}

const reservationColumns = "id, reservation_number, vehicle_name, start_date, end_date, guest_name, invoice_status"

type reservationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReservationRepository(db *pgxpool.Pool, logger *zap.Logger) ReservationRepository {
	return &reservationRepository{db: db, logger: logger}
}

func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "reservation "+id.String())
}

func (r *reservationRepository) GetByNumber(ctx context.Context, number string) (*models.Reservation, error) {
	return r.getOne(ctx, squirrel.Eq{"reservation_number": number}, "reservation "+number)
}

func (r *reservationRepository) getOne(ctx context.Context, pred any, label string) (*models.Reservation, error) {
	query := squirrel.Select(reservationColumns).
		From("reservations").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var res models.Reservation
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&res.ID, &res.ReservationNumber, &res.VehicleName, &res.StartDate,
		&res.EndDate, &res.GuestName, &res.InvoiceStatus,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("%s not found", label)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Upsert(ctx context.Context, res *models.Reservation) error {
	query := squirrel.Insert("reservations").
		Columns("id", "reservation_number", "vehicle_name", "start_date", "end_date", "guest_name", "invoice_status").
		Values(res.ID, res.ReservationNumber, res.VehicleName, res.StartDate, res.EndDate, res.GuestName, res.InvoiceStatus).
		Suffix("ON CONFLICT (reservation_number) DO UPDATE SET vehicle_name = EXCLUDED.vehicle_name, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, guest_name = EXCLUDED.guest_name, invoice_status = EXCLUDED.invoice_status").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *reservationRepository) Search(ctx context.Context, p ReservationSearch) ([]*models.Reservation, bool, error) {
	query := squirrel.Select(reservationColumns).
		From("reservations").
		PlaceholderFormat(squirrel.Dollar)

	var conds squirrel.Or
	if !p.WindowStart.IsZero() {
		conds = append(conds, squirrel.And{
			squirrel.GtOrEq{"start_date": p.WindowStart},
			squirrel.Lt{"start_date": p.WindowEnd.AddDate(0, 0, 1)},
		})
	}
	if p.Query != "" {
		pattern := "%" + p.Query + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"reservation_number": pattern},
			squirrel.ILike{"vehicle_name": pattern},
			squirrel.ILike{"guest_name": pattern},
		})
	}
	if len(conds) > 0 {
		query = query.Where(conds)
	}

	return r.page(ctx, query, p.Page, p.PerPage)
}

func (r *reservationRepository) List(ctx context.Context, page, perPage int) ([]*models.Reservation, bool, error) {
	query := squirrel.Select(reservationColumns).
		From("reservations").
		PlaceholderFormat(squirrel.Dollar)
	return r.page(ctx, query, page, perPage)
}

// page fetches perPage+1 rows; the extra row signals has_next.
func (r *reservationRepository) page(ctx context.Context, query squirrel.SelectBuilder, page, perPage int) ([]*models.Reservation, bool, error) {
	offset := (page - 1) * perPage
	sql, args, err := query.
		OrderBy("start_date DESC", "reservation_number ASC").
		Limit(uint64(perPage + 1)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, false, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID, &res.ReservationNumber, &res.VehicleName, &res.StartDate,
			&res.EndDate, &res.GuestName, &res.InvoiceStatus,
		); err != nil {
			return nil, false, err
		}
		reservations = append(reservations, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasNext := len(reservations) > perPage
	if hasNext {
		reservations = reservations[:perPage]
	}
	return reservations, hasNext, nil
}
