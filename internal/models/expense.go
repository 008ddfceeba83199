package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseType string

const (
	ExpenseTypeToll     ExpenseType = "toll"
	ExpenseTypeTicket   ExpenseType = "ticket"
	ExpenseTypeCleaning ExpenseType = "cleaning"
	ExpenseTypeDamage   ExpenseType = "damage"
	ExpenseTypeOther    ExpenseType = "other"
)

var AllExpenseTypes = []ExpenseType{
	ExpenseTypeToll,
	ExpenseTypeTicket,
	ExpenseTypeCleaning,
	ExpenseTypeDamage,
	ExpenseTypeOther,
}

// ParseExpenseType returns the matching type, or false for unknown input.
func ParseExpenseType(s string) (ExpenseType, bool) {
	for _, t := range AllExpenseTypes {
		if s == string(t) {
			return t, true
		}
	}
	return "", false
}

type ExpenseStatus string

const (
	StatusPending    ExpenseStatus = "pending"
	StatusApproved   ExpenseStatus = "approved"
	StatusRejected   ExpenseStatus = "rejected"
	StatusInvoiced   ExpenseStatus = "invoiced"
	StatusPaid       ExpenseStatus = "paid"
	StatusUnbillable ExpenseStatus = "unbillable"
)

// transitions holds the allowed status graph. rejected, unbillable and paid
// are terminal.
var transitions = map[ExpenseStatus][]ExpenseStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusUnbillable},
	StatusApproved: {StatusInvoiced},
	StatusInvoiced: {StatusPaid},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to ExpenseStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status transition exists.
func (s ExpenseStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// FormatAmount renders an amount at its stored decimal scale. Decimal's own
// String trims trailing zeros, turning a submitted "45.50" into "45.5".
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

type Expense struct {
	ID               uuid.UUID       `db:"id"`
	Description      string          `db:"description"`
	Type             ExpenseType     `db:"type"`
	Status           ExpenseStatus   `db:"status"`
	Amount           decimal.Decimal `db:"amount"`
	DateOccurred     time.Time       `db:"date_occurred"`
	ReceiptReference string          `db:"receipt_reference"`
	ReservationID    *uuid.UUID      `db:"reservation_id"`
	Notes            string          `db:"notes"`
	CreatedBy        string          `db:"created_by"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
	DeletedAt        *time.Time      `db:"deleted_at"`
}
