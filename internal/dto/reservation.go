package dto

import (
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
)

type ReservationResponse struct {
	ID                string `json:"id"`
	ReservationNumber string `json:"reservation_number"`
	VehicleName       string `json:"vehicle_name"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	GuestName         string `json:"guest_name"`
	InvoiceStatus     string `json:"invoice_status"`
}

type ReservationListResponse struct {
	Items   []ReservationResponse `json:"items"`
	HasNext bool                  `json:"has_next"`
}

func ToReservationResponse(r *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID.String(),
		ReservationNumber: r.ReservationNumber,
		VehicleName:       r.VehicleName,
		StartDate:         r.StartDate.Format(time.DateOnly),
		EndDate:           r.EndDate.Format(time.DateOnly),
		GuestName:         r.GuestName,
		InvoiceStatus:     r.InvoiceStatus,
	}
}

func ToReservationListResponse(items []*models.Reservation, hasNext bool) ReservationListResponse {
	out := ReservationListResponse{
		Items:   make([]ReservationResponse, 0, len(items)),
		HasNext: hasNext,
	}
	for _, r := range items {
		out.Items = append(out.Items, ToReservationResponse(r))
	}
	return out
}
