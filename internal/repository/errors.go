// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and coordinator jobs to distinguish between different failure
// scenarios without inspecting driver-specific errors.
package repository

import (
	"errors"
	"strings"
)

// ErrMovieNotFound is returned when a movie lookup matches no row.
var ErrMovieNotFound = errors.New("movie not found")

// ErrScreenNotFound is returned when a screen lookup matches no row.
var ErrScreenNotFound = errors.New("screen not found")

// ErrShowNotFound is returned when a show lookup matches no row.
var ErrShowNotFound = errors.New("show not found")

// ErrSeatNotFound is returned when a show seat lookup matches no row.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTicketNotFound is returned when a ticket lookup matches no row.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrRequestNotFound is returned when a movie request lookup matches no
// row.
var ErrRequestNotFound = errors.New("request not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting existing state, such as scheduling a duplicate show or
// registering an email twice. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicateEntry reports whether err is MySQL's duplicate-key error
// (1062).  Matched on the message so driver internals stay unimported.
func isDuplicateEntry(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
