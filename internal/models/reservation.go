package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a trip/booking record an expense can be attributed to.
// The reservation store is read-only from this service's point of view.
type Reservation struct {
	ID                uuid.UUID `db:"id"`
	ReservationNumber string    `db:"reservation_number"`
	VehicleName       string    `db:"vehicle_name"`
	StartDate         time.Time `db:"start_date"`
	EndDate           time.Time `db:"end_date"`
	GuestName         string    `db:"guest_name"`
	InvoiceStatus     string    `db:"invoice_status"`
}

// Label is the display label used for text matching and listings.
func (r *Reservation) Label() string {
	return r.ReservationNumber + " " + r.VehicleName
}
