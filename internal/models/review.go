package models

import "time"

type Review struct {
	ID        string    `json:"id" db:"id"`
	ServiceID string    `json:"service_id" db:"service_id"`
	FromUser  string    `json:"from_user" db:"from_user"`
	ToUser    string    `json:"to_user" db:"to_user"`
	Rating    int       `json:"rating" db:"rating"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RatingSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Summarize computes the rating summary of a set of reviews.
func Summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return RatingSummary{Count: len(reviews), Average: float64(total) / float64(len(reviews))}
}
