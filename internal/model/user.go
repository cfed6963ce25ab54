package model

import "time"

// Roles accepted by the role middleware.  ADMIN covers the staff
// reservation workflow and catalog management.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User is the acting identity behind every hold, reservation and booking.
// PasswordHash is a bcrypt hash and never leaves the server.
type User struct {
	ID           uint64    `json:"id"`    // users.id
	Name         string    `json:"name"`  // users.name
	Email        string    `json:"email"` // users.email
	PasswordHash string    `json:"-"`     // users.password_hash
	Role         string    `json:"role"`  // users.role
	CreatedAt    time.Time `json:"created_at"`
}
