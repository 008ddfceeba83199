package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lifecycleFixture struct {
	expenses     *fakeExpenseRepo
	reservations *fakeReservationRepo
	auditRepo    *fakeAuditRepo
	svc          *LifecycleService
}

func newLifecycleFixture(reservations ...*models.Reservation) *lifecycleFixture {
	expenses := newFakeExpenseRepo()
	resRepo := newFakeReservationRepo(reservations...)
	auditRepo := newFakeAuditRepo()
	audit := NewAuditService(auditRepo, expenses, zap.NewNop())
	return &lifecycleFixture{
		expenses:     expenses,
		reservations: resRepo,
		auditRepo:    auditRepo,
		svc:          NewLifecycleService(expenses, resRepo, audit, zap.NewNop()),
	}
}

func (f *lifecycleFixture) createPending(t *testing.T) *models.Expense {
	t.Helper()
	expense, err := f.svc.Create(context.Background(), CreateExpenseParams{
		Description:  "Airport toll",
		Type:         models.ExpenseTypeToll,
		Amount:       decimal.RequireFromString("45.50"),
		DateOccurred: time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
	}, "ops@fleet")
	require.NoError(t, err)
	return expense
}

func testReservation(number string) *models.Reservation {
	return &models.Reservation{
		ID:                uuid.New(),
		ReservationNumber: number,
		VehicleName:       "Tesla Model 3",
		StartDate:         time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		GuestName:         "Dana Whitfield",
		InvoiceStatus:     "open",
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()

	tests := []struct {
		name   string
		params CreateExpenseParams
	}{
		{"missing type", CreateExpenseParams{Amount: decimal.RequireFromString("1"), DateOccurred: time.Now()}},
		{"unknown type", CreateExpenseParams{Type: "parking", Amount: decimal.RequireFromString("1"), DateOccurred: time.Now()}},
		{"negative amount", CreateExpenseParams{Type: models.ExpenseTypeToll, Amount: decimal.RequireFromString("-1"), DateOccurred: time.Now()}},
		{"missing date", CreateExpenseParams{Type: models.ExpenseTypeToll, Amount: decimal.RequireFromString("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.params, "ops@fleet")
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestAssignLinksAndApproves(t *testing.T) {
	t.Parallel()
	reservation := testReservation("RSV-100")
	f := newLifecycleFixture(reservation)
	expense := f.createPending(t)

	updated, err := f.svc.Assign(context.Background(), expense.ID, AssignTarget{ReservationNumber: "RSV-100"}, "ops@fleet")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ReservationID)
	assert.Equal(t, reservation.ID, *updated.ReservationID)

	events, err := f.auditRepo.ListByExpense(context.Background(), expense.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditKindStatusChange, events[0].Kind)
	assert.Contains(t, events[0].Payload, "RSV-100")
}

func TestAssignUnknownReservation(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)

	_, err := f.svc.Assign(context.Background(), expense.ID, AssignTarget{ReservationNumber: "RSV-404"}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// The expense is untouched by the failed assign.
	current, err := f.svc.Get(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status)
	assert.Nil(t, current.ReservationID)
}

func TestAssignRequiresTarget(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)

	_, err := f.svc.Assign(context.Background(), expense.ID, AssignTarget{}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAssignAlreadyLinkedConflicts(t *testing.T) {
	t.Parallel()
	r1 := testReservation("RSV-1")
	r2 := testReservation("RSV-2")
	f := newLifecycleFixture(r1, r2)
	expense := f.createPending(t)

	_, err := f.svc.Assign(context.Background(), expense.ID, AssignTarget{ReservationNumber: "RSV-1"}, "ops@fleet")
	require.NoError(t, err)

	_, err = f.svc.Assign(context.Background(), expense.ID, AssignTarget{ReservationNumber: "RSV-2"}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Link still points at the first reservation.
	current, err := f.svc.Get(context.Background(), expense.ID)
	require.NoError(t, err)
	require.NotNil(t, current.ReservationID)
	assert.Equal(t, r1.ID, *current.ReservationID)
}

func TestAssignNonPendingRejected(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture(testReservation("RSV-1"))
	expense := f.createPending(t)

	_, err := f.svc.MarkUnbillable(context.Background(), expense.ID, "ops@fleet")
	require.NoError(t, err)

	_, err = f.svc.Assign(context.Background(), expense.ID, AssignTarget{ReservationNumber: "RSV-1"}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestAssignConcurrentOneWinner(t *testing.T) {
	t.Parallel()
	r1 := testReservation("RSV-1")
	r2 := testReservation("RSV-2")
	f := newLifecycleFixture(r1, r2)
	expense := f.createPending(t)

	targets := []AssignTarget{
		{ReservationNumber: "RSV-1"},
		{ReservationNumber: "RSV-2"},
	}
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target AssignTarget) {
			defer wg.Done()
			_, errs[i] = f.svc.Assign(context.Background(), expense.ID, target, "ops@fleet")
		}(i, target)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		kind := apperr.KindOf(err)
		assert.Contains(t, []apperr.Kind{apperr.KindConflict, apperr.KindInvalidTransition}, kind)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	current, err := f.svc.Get(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, current.Status)
	require.NotNil(t, current.ReservationID)
}

func TestTransitionChain(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	e, err := f.svc.Approve(ctx, expense.ID, "ops@fleet")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, e.Status)

	e, err = f.svc.MarkInvoiced(ctx, expense.ID, "ops@fleet")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvoiced, e.Status)

	e, err = f.svc.MarkPaid(ctx, expense.ID, "ops@fleet")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, e.Status)

	events, err := f.auditRepo.ListByExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "pending -> approved", events[0].Payload)
	assert.Equal(t, "approved -> invoiced", events[1].Payload)
	assert.Equal(t, "invoiced -> paid", events[2].Payload)
}

func TestTransitionFromTerminalRejected(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	_, err := f.svc.Reject(ctx, expense.ID, "ops@fleet")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, expense.ID, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestTransitionSkippingStatesRejected(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)

	_, err := f.svc.MarkPaid(context.Background(), expense.ID, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestEditUpdatesFields(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)

	desc := "Tunnel toll"
	amount := decimal.RequireFromString("48.00")
	updated, err := f.svc.Edit(context.Background(), expense.ID, EditExpenseParams{
		Description: &desc,
		Amount:      &amount,
	}, "ops@fleet")
	require.NoError(t, err)

	assert.Equal(t, "Tunnel toll", updated.Description)
	assert.Equal(t, "48.00", models.FormatAmount(updated.Amount))
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestEditIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)

	desc := "Airport toll"
	for i := 0; i < 2; i++ {
		updated, err := f.svc.Edit(context.Background(), expense.ID, EditExpenseParams{Description: &desc}, "ops@fleet")
		require.NoError(t, err)
		assert.Equal(t, "Airport toll", updated.Description)
	}
}

func TestEditTerminalRejected(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	_, err := f.svc.Reject(ctx, expense.ID, "ops@fleet")
	require.NoError(t, err)

	desc := "too late"
	_, err = f.svc.Edit(ctx, expense.ID, EditExpenseParams{Description: &desc}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestEditStatusObeysTransitions(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	paid := models.StatusPaid
	_, err := f.svc.Edit(ctx, expense.ID, EditExpenseParams{Status: &paid}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	approved := models.StatusApproved
	updated, err := f.svc.Edit(ctx, expense.ID, EditExpenseParams{Status: &approved}, "ops@fleet")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	events, err := f.auditRepo.ListByExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pending -> approved", events[0].Payload)
}

func TestEditInvalidAmountLeavesExpenseUntouched(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	negative := decimal.RequireFromString("-1")
	desc := "should not land"
	_, err := f.svc.Edit(ctx, expense.ID, EditExpenseParams{Description: &desc, Amount: &negative}, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	current, err := f.svc.Get(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "Airport toll", current.Description)
	assert.Equal(t, "45.50", models.FormatAmount(current.Amount))
}

func TestDeleteHidesExpense(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()
	expense := f.createPending(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, expense.ID, "ops@fleet"))

	_, err := f.svc.Get(ctx, expense.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Deleting again reports not found.
	err = f.svc.Delete(ctx, expense.ID, "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteUnknownExpense(t *testing.T) {
	t.Parallel()
	f := newLifecycleFixture()

	err := f.svc.Delete(context.Background(), uuid.New(), "ops@fleet")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
