package database

import "time"

// RatingEvent is one recorded rating decision.
type RatingEvent struct {
	ID         int64     `json:"id"`
	Identifier string    `json:"identifier"`
	Filename   string    `json:"filename"`
	Partition  int       `json:"partition"`
	Rating     string    `json:"rating"`
	Rater      string    `json:"rater"`
	Path       string    `json:"path"`
	RatedAt    time.Time `json:"ratedAt"`
}

// RatingCount is the number of events for one rating value or rater.
type RatingCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
