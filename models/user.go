package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered citizen or administrator
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	MobileNumber string    `json:"mobileNumber"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	District     string    `json:"district,omitempty"`
	Municipality string    `json:"municipality,omitempty"`
	IsAdmin      bool      `json:"isAdmin,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasLocation reports whether the user has picked a district and municipality
func (u *User) HasLocation() bool {
	return u.District != "" && u.Municipality != ""
}
