package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditEventKind string

const (
	AuditKindNote         AuditEventKind = "note"
	AuditKindStatusChange AuditEventKind = "status_change"
)

// AuditEvent is one entry in the append-only per-expense ledger. Events are
// never mutated or deleted.
type AuditEvent struct {
	ID        uuid.UUID      `db:"id"`
	ExpenseID uuid.UUID      `db:"expense_id"`
	Actor     string         `db:"actor"`
	Kind      AuditEventKind `db:"kind"`
	Payload   string         `db:"payload"`
	CreatedAt time.Time      `db:"created_at"`
}
