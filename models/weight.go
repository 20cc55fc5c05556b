package models

import "time"

// WeightEntry is one weight measurement. The timestamp is normalized to
// local noon of the logged date; the whole history is stored as a single
// JSON collection per user with at most one entry per calendar day.
type WeightEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Weight    float64   `json:"weight"`
}

// Note is the free-text diary note for one (user, date). Last write wins.
type Note struct {
	Text string `json:"text"`
}
