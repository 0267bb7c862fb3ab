package model

import (
	"time"
)

// AdminUser carries its permission set resolved once at creation time from the
// sub-role table. It is deliberately not re-derived afterwards.
type AdminUser struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Role        Role         `json:"role"`
	AdminRole   AdminRole    `json:"adminRole"`
	Permissions []Permission `json:"permissions"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
