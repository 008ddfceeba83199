package service

import (
	"context"
	"sort"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"go.uber.org/zap"
)

// matchWindowDays is the date proximity window on either side of the expense
// date. Inclusive: a reservation starting exactly this many days away is a
// match.
const matchWindowDays = 2

// MatcherService ranks reservations as reconciliation targets for an
// expense. It is strictly read-only.
type MatcherService struct {
	reservationRepo repository.ReservationRepository
	logger          *zap.Logger
}

func NewMatcherService(reservationRepo repository.ReservationRepository, logger *zap.Logger) *MatcherService {
	return &MatcherService{reservationRepo: reservationRepo, logger: logger}
}

// Search returns reservations matching the expense by date proximity or the
// optional query by text, ranked best-first. An empty result is a valid
// outcome, not an error.
func (s *MatcherService) Search(ctx context.Context, expense *models.Expense, query string, page, perPage int) ([]*models.Reservation, bool, error) {
	day := dateOnly(expense.DateOccurred)
	params := repository.ReservationSearch{
		WindowStart: day.AddDate(0, 0, -matchWindowDays),
		WindowEnd:   day.AddDate(0, 0, matchWindowDays),
		Query:       query,
		Page:        page,
		PerPage:     perPage,
	}

	matches, hasNext, err := s.reservationRepo.Search(ctx, params)
	if err != nil {
		return nil, false, err
	}

	rankMatches(matches, day)

	s.logger.Info("reservation search completed",
		zap.String("expense_id", expense.ID.String()),
		zap.String("query", query),
		zap.Int("matches", len(matches)),
	)
	return matches, hasNext, nil
}

// ListReservations pages through the full reservation corpus.
func (s *MatcherService) ListReservations(ctx context.Context, page, perPage int) ([]*models.Reservation, bool, error) {
	return s.reservationRepo.List(ctx, page, perPage)
}

// rankMatches orders window matches by date distance ascending; text-only
// matches follow. Ties break on reservation number for stable output.
func rankMatches(matches []*models.Reservation, expenseDay time.Time) {
	rank := func(r *models.Reservation) int {
		dist := dayDistance(dateOnly(r.StartDate), expenseDay)
		if dist <= matchWindowDays {
			return dist
		}
		return matchWindowDays + 1
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := rank(matches[i]), rank(matches[j])
		if ri != rj {
			return ri < rj
		}
		return matches[i].ReservationNumber < matches[j].ReservationNumber
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayDistance(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}
