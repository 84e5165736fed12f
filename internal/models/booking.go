package models

import (
	"encoding/json"
	"time"
)

// BookingState is the lifecycle position of a Booking.
type BookingState string

const (
	BookingActive                BookingState = "active"
	BookingCancellationRequested BookingState = "cancellation_requested"
	BookingCancelled             BookingState = "cancelled"
	BookingFinished              BookingState = "finished"
)

func (s BookingState) Valid() bool {
	switch s {
	case BookingActive, BookingCancellationRequested, BookingCancelled, BookingFinished:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave the state.
func (s BookingState) Terminal() bool {
	return s == BookingCancelled || s == BookingFinished
}

// Booking links a subscriber to a provider's service. ServiceID is cleared
// once a cancellation is approved; the title and price are captured at
// booking time so the record stays readable afterwards.
type Booking struct {
	ID                  string       `json:"id" db:"id"`
	ServiceID           *string      `json:"service_id" db:"service_id"`
	ServiceTitle        string       `json:"service_title" db:"service_title"`
	User                string       `json:"user" db:"username"`
	Provider            string       `json:"provider" db:"provider"`
	RequiredTimeCredits int64        `json:"required_time_credits" db:"required_time_credits"`
	State               BookingState `json:"state" db:"state"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

func (b Booking) CancellationRequested() bool { return b.State == BookingCancellationRequested }

func (b Booking) CancellationApproved() bool { return b.State == BookingCancelled }

// MarshalJSON adds the derived cancellation flags to the wire form.
func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	return json.Marshal(struct {
		plain
		CancellationRequested bool `json:"cancellation_requested"`
		CancellationApproved  bool `json:"cancellation_approved"`
	}{
		plain:                 plain(b),
		CancellationRequested: b.CancellationRequested(),
		CancellationApproved:  b.CancellationApproved(),
	})
}
