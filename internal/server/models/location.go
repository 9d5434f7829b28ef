package models

import "time"

// Location is the last coordinates a candidate shared. One row per candidate.
type Location struct {
	CandidateID string
	Latitude    float64
	Longitude   float64
	Accuracy    float64
	UpdatedAt   time.Time
}
