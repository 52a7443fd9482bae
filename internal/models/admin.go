package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is an account allowed to approve, reject and delete visitors.
type Admin struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}
