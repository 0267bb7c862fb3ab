package service

import (
	"fmt"
	"math/rand"
)

// Capacity holds the registry caps: how many active members and pending
// waitlist applications the club accepts.
type Capacity struct {
	ActiveMembersMax int
	WaitlistMax      int
}

// newMembershipID generates the fixed-format display id for a member.
func newMembershipID() string {
	return fmt.Sprintf("MEM-%d", 100000+rand.Intn(900000))
}
