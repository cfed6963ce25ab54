package model

import "time"

// Movie request status values.
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

// MovieRequest is a customer's ask for a title the catalog does not
// carry yet.  Approval is a signal to programming staff, not an
// automatic catalog insert; requests never touch seat inventory.
type MovieRequest struct {
	ID          uint64    `json:"id"`                    // movie_requests.id
	UserID      uint64    `json:"user_id"`               // movie_requests.user_id
	MovieTitle  string    `json:"movie_title"`           // movie_requests.movie_title
	Description string    `json:"description,omitempty"` // movie_requests.description
	Status      string    `json:"status"`                // movie_requests.status
	CreatedAt   time.Time `json:"created_at"`            // movie_requests.created_at
}
