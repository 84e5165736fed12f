package models

import "time"

// Service is an offer posted by a provider, priced in time credits.
type Service struct {
	ID                  string    `json:"id" db:"id"`
	Title               string    `json:"title" db:"title"`
	Description         string    `json:"description" db:"description"`
	Location            string    `json:"location" db:"location"`
	RequiredTimeCredits int64     `json:"required_time_credits" db:"required_time_credits"`
	IsFinished          bool      `json:"is_finished" db:"is_finished"`
	PostedBy            string    `json:"posted_by" db:"posted_by"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// ServicePatch carries the editable fields of a Service. Nil fields are left alone.
type ServicePatch struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	Location            *string `json:"location"`
	RequiredTimeCredits *int64  `json:"required_time_credits"`
}
