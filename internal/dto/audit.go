package dto

import (
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
)

type AuditEventResponse struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expense_id"`
	Actor     string `json:"actor"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	CreatedAt string `json:"created_at"`
}

type AuditEventListResponse struct {
	Items []AuditEventResponse `json:"items"`
}

func ToAuditEventResponse(ev *models.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:        ev.ID.String(),
		ExpenseID: ev.ExpenseID.String(),
		Actor:     ev.Actor,
		Kind:      string(ev.Kind),
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt.Format(time.RFC3339),
	}
}
