package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	ID         string     `json:"id"`
	BusinessID string     `json:"business_id"`
	StaffID    string     `json:"staff_id"`
	CustomerID string     `json:"customer_id"`
	ServiceID  string     `json:"service_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Status     string     `json:"status"`
	Price      float64    `json:"price"`
	Currency   string     `json:"currency,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Active appointments hold their interval against other bookings.
func (a Appointment) Active() bool {
	return a.DeletedAt == nil && a.Status != StatusCancelled
}
