package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail          = "email:welcome"
	TaskBookingCreated        = "email:booking_created"
	TaskCancellationRequested = "email:cancellation_requested"
	TaskCancellationDecided   = "email:cancellation_decided"
	TaskServiceFinished       = "email:service_finished"
)

const queueEmails = "emails"

// Common envelope for email notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WelcomeEmailPayload struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// BookingEmailPayload is shared by every booking transition task.
type BookingEmailPayload struct {
	Kind      string        `json:"kind"`
	BookingID string        `json:"booking_id"`
	Recipient string        `json:"recipient"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}
