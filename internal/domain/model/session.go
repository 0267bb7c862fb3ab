package model

import (
	"time"
)

// SessionUser is the identity and permission snapshot cached on a session at
// creation time.
type SessionUser struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	AdminRole   AdminRole    `json:"adminRole,omitempty"`
	Permissions []Permission `json:"permissions"`
}

func (u *SessionUser) HasPermission(p Permission) bool {
	if u == nil {
		return false
	}
	for _, perm := range u.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// Session is a live bearer token. A token identifies at most one session;
// expired sessions are inert and purged on the next lookup.
type Session struct {
	Token     string      `json:"token"`
	User      SessionUser `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
