package dto

import (
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
)

// CreateExpenseRequest covers both manual entry and candidate promotion.
// FileRef set means the expense is promoted from a recognized candidate.
type CreateExpenseRequest struct {
	Description  string `json:"description" validate:"max=500"`
	Type         string `json:"type"`
	Amount       string `json:"amount" validate:"required"`
	DateOccurred string `json:"date_occurred" validate:"required"`
	FileRef      string `json:"file_ref"`
	Vendor       string `json:"vendor" validate:"max=200"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// EditExpenseRequest updates fields on a non-terminal expense. Status is only
// touched when explicitly requested and still goes through the transition
// rules.
type EditExpenseRequest struct {
	Description  *string `json:"description" validate:"omitempty,max=500"`
	Type         *string `json:"type" validate:"omitempty,oneof=toll ticket cleaning damage other"`
	Amount       *string `json:"amount"`
	DateOccurred *string `json:"date_occurred"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
	Status       *string `json:"status" validate:"omitempty,oneof=pending approved rejected invoiced paid unbillable"`
}

// AssignRequest links an expense to a reservation by id or number.
type AssignRequest struct {
	ReservationID     string `json:"reservation_id"`
	ReservationNumber string `json:"reservation_number"`
}

type NoteRequest struct {
	Text string `json:"text" validate:"max=2000"`
}

type ExpenseResponse struct {
	ID               string  `json:"id"`
	Description      string  `json:"description"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	Amount           string  `json:"amount"`
	DateOccurred     string  `json:"date_occurred"`
	ReceiptReference string  `json:"receipt_reference,omitempty"`
	ReservationID    *string `json:"reservation_id"`
	Notes            string  `json:"notes,omitempty"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type ExpenseListResponse struct {
	Items      []ExpenseResponse `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

type ReceiptURLResponse struct {
	ExpenseID string `json:"expense_id"`
	URL       string `json:"url"`
}

// ToExpenseResponse keeps the amount as a decimal string so the submitted
// scale survives the round trip.
func ToExpenseResponse(e *models.Expense) ExpenseResponse {
	var reservationID *string
	if e.ReservationID != nil {
		s := e.ReservationID.String()
		reservationID = &s
	}
	return ExpenseResponse{
		ID:               e.ID.String(),
		Description:      e.Description,
		Type:             string(e.Type),
		Status:           string(e.Status),
		Amount:           models.FormatAmount(e.Amount),
		DateOccurred:     e.DateOccurred.Format("2006-01-02"),
		ReceiptReference: e.ReceiptReference,
		ReservationID:    reservationID,
		Notes:            e.Notes,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}
}
