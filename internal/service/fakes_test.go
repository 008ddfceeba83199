package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/google/uuid"
)

// fakeExpenseRepo is an in-memory ExpenseRepository. Mutations hold the
// mutex for the whole check-and-set so the optimistic guards behave like the
// single-statement UPDATEs they stand in for.
type fakeExpenseRepo struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]*models.Expense
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[uuid.UUID]*models.Expense)}
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *models.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.expenses[e.ID] = &cp
	return nil
}

func (r *fakeExpenseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.DeletedAt != nil {
		return nil, apperr.NotFound("expense %s not found", id)
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExpenseRepo) List(_ context.Context, f repository.ExpenseFilter) ([]*models.Expense, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*models.Expense
	for _, e := range r.expenses {
		if e.DeletedAt != nil {
			continue
		}
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		if f.From != nil && e.DateOccurred.Before(*f.From) {
			continue
		}
		if f.To != nil && e.DateOccurred.After(*f.To) {
			continue
		}
		cp := *e
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DateOccurred.After(all[j].DateOccurred)
	})

	total := len(all)
	start := (f.Page - 1) * f.PerPage
	if start > total {
		start = total
	}
	end := start + f.PerPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *fakeExpenseRepo) UpdateFields(_ context.Context, e *models.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.expenses[e.ID]
	if !ok || stored.DeletedAt != nil {
		return apperr.NotFound("expense %s not found", e.ID)
	}
	cp := *e
	cp.ReservationID = stored.ReservationID
	r.expenses[e.ID] = &cp
	return nil
}

func (r *fakeExpenseRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.ExpenseStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.DeletedAt != nil || e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (r *fakeExpenseRepo) AssignReservation(_ context.Context, id, reservationID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.DeletedAt != nil || e.Status != models.StatusPending || e.ReservationID != nil {
		return false, nil
	}
	rid := reservationID
	e.ReservationID = &rid
	e.Status = models.StatusApproved
	return true, nil
}

func (r *fakeExpenseRepo) SoftDelete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.DeletedAt != nil {
		return false, nil
	}
	now := e.UpdatedAt
	e.DeletedAt = &now
	return true, nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations []*models.Reservation
}

func newFakeReservationRepo(reservations ...*models.Reservation) *fakeReservationRepo {
	return &fakeReservationRepo{reservations: reservations}
}

func (r *fakeReservationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.ID == id {
			cp := *res
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("reservation %s not found", id)
}

func (r *fakeReservationRepo) GetByNumber(_ context.Context, number string) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.ReservationNumber == number {
			cp := *res
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("reservation %s not found", number)
}

func (r *fakeReservationRepo) Search(_ context.Context, p repository.ReservationSearch) ([]*models.Reservation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Reservation
	for _, res := range r.reservations {
		inWindow := !p.WindowStart.IsZero() &&
			!res.StartDate.Before(p.WindowStart) && res.StartDate.Before(p.WindowEnd.AddDate(0, 0, 1))
		textMatch := p.Query != "" && (containsFold(res.ReservationNumber, p.Query) ||
			containsFold(res.VehicleName, p.Query) ||
			containsFold(res.GuestName, p.Query))
		if inWindow || textMatch {
			cp := *res
			matched = append(matched, &cp)
		}
	}
	return pageReservations(matched, p.Page, p.PerPage)
}

func (r *fakeReservationRepo) List(_ context.Context, page, perPage int) ([]*models.Reservation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]*models.Reservation, len(r.reservations))
	for i, res := range r.reservations {
		c := *res
		cp[i] = &c
	}
	return pageReservations(cp, page, perPage)
}

func (r *fakeReservationRepo) Upsert(_ context.Context, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.reservations {
		if existing.ReservationNumber == res.ReservationNumber {
			cp := *res
			r.reservations[i] = &cp
			return nil
		}
	}
	cp := *res
	r.reservations = append(r.reservations, &cp)
	return nil
}

func pageReservations(all []*models.Reservation, page, perPage int) ([]*models.Reservation, bool, error) {
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	hasNext := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], hasNext, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Append(_ context.Context, ev *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ev
	r.events = append(r.events, &cp)
	return nil
}

func (r *fakeAuditRepo) ListByExpense(_ context.Context, expenseID uuid.UUID) ([]*models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []*models.AuditEvent
	for _, ev := range r.events {
		if ev.ExpenseID == expenseID {
			cp := *ev
			events = append(events, &cp)
		}
	}
	return events, nil
}
