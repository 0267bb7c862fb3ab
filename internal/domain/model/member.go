package model

import (
	"time"
)

type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberInactive  MemberStatus = "inactive"
	MemberSuspended MemberStatus = "suspended"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberInactive, MemberSuspended:
		return true
	}
	return false
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type Preferences struct {
	ReceiveEmails        bool `json:"receiveEmails"`
	ReceiveNotifications bool `json:"receiveNotifications"`
	IsPublicProfile      bool `json:"isPublicProfile"`
}

// DefaultPreferences applies when a member is created without explicit ones.
func DefaultPreferences() *Preferences {
	return &Preferences{
		ReceiveEmails:        true,
		ReceiveNotifications: true,
		IsPublicProfile:      false,
	}
}

type Member struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Phone          string       `json:"phone,omitempty"`
	Status         MemberStatus `json:"status"`
	MemberSince    time.Time    `json:"memberSince"`
	MembershipID   string       `json:"membershipId"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	Bio            string       `json:"bio,omitempty"`
	Address        *Address     `json:"address,omitempty"`
	Preferences    *Preferences `json:"preferences,omitempty"`
	LastLogin      *time.Time   `json:"lastLogin,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
