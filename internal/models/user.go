package models

import "time"

// User is a marketplace member. TimeCredits is a cached balance; the ledger
// entries for the user always sum to it.
type User struct {
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	TimeCredits  int64     `json:"time_credits" db:"time_credits"`
	Introduction string    `json:"introduction" db:"introduction"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PublicProfile is what other users can see.
type PublicProfile struct {
	Username      string        `json:"username"`
	Introduction  string        `json:"introduction"`
	TimeCredits   int64         `json:"time_credits"`
	MemberSince   time.Time     `json:"member_since"`
	Reviews       RatingSummary `json:"reviews"`
	PostedCount   int           `json:"posted_services"`
	FinishedCount int           `json:"finished_services"`
}
