package models

import "time"

// Message is a direct message between two users. System notices written by
// booking transitions carry the booking id.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Sender    string    `json:"sender" db:"sender"`
	Receiver  string    `json:"receiver" db:"receiver"`
	Content   string    `json:"content" db:"content"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	BookingID *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ConversationSummary is one entry of a user's inbox.
type ConversationSummary struct {
	Peer        string  `json:"peer"`
	LastMessage Message `json:"last_message"`
	Unread      int     `json:"unread"`
}
