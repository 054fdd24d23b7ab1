package model

import "time"

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

// Appointment is a booked occurrence of an expert's event.
type Appointment struct {
	ID            string
	ExpertID      string
	EventID       string
	CustomerName  string
	CustomerEmail string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}
