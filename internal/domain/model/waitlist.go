package model

import (
	"time"
)

type WaitlistStatus string

const (
	WaitlistPending  WaitlistStatus = "pending"
	WaitlistApproved WaitlistStatus = "approved"
	WaitlistRejected WaitlistStatus = "rejected"
)

func (s WaitlistStatus) Valid() bool {
	switch s {
	case WaitlistPending, WaitlistApproved, WaitlistRejected:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is allowed.
// PENDING is the only non-terminal state.
func (s WaitlistStatus) Terminal() bool {
	return s == WaitlistApproved || s == WaitlistRejected
}

// WaitlistEntry is a membership application queued behind the active-member cap.
// Position is 1-based and dense over the PENDING subset, ordered by
// ApplicationDate ascending; it is recomputed after every insert, removal or
// status change.
type WaitlistEntry struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	Phone            string         `json:"phone,omitempty"`
	Status           WaitlistStatus `json:"status"`
	ApplicationDate  time.Time      `json:"applicationDate"`
	Position         int            `json:"position"`
	ReasonForJoining string         `json:"reasonForJoining,omitempty"`
	ReferredBy       string         `json:"referredBy,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
