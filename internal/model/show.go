package model

import "time"

// Show represents a scheduled screening of a movie on a screen at a
// specific date and time.  ReservedSeatsCount tracks how many of its
// seats currently sit in RESERVED state and must never exceed the
// configured per-show cap.
//
// Fields:
//  ID                 – primary key identifier.
//  MovieID            – movie being screened.
//  ScreenID           – screen the show runs on.
//  ShowDate           – calendar date (YYYY-MM-DD).
//  ShowTime           – start time (HH:MM:SS).
//  ReservedSeatsCount – number of seats currently RESERVED.
//  CreatedAt          – creation timestamp.
type Show struct {
	ID                 uint64    `json:"id"`                   // shows.id
	MovieID            uint64    `json:"movie_id"`             // shows.movie_id
	ScreenID           uint64    `json:"screen_id"`            // shows.screen_id
	ShowDate           string    `json:"show_date"`            // shows.show_date
	ShowTime           string    `json:"show_time"`            // shows.show_time
	ReservedSeatsCount int       `json:"reserved_seats_count"` // shows.reserved_seats_count
	CreatedAt          time.Time `json:"created_at"`           // shows.created_at
}
