package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsForReturnsCopies(t *testing.T) {
	perms := PermissionsFor(RoleAdmin, SuperAdmin)
	assert.Contains(t, perms, PermAssignAdmin)

	// Mutating the returned slice must not leak into the tables.
	perms[0] = Permission("tampered")
	again := PermissionsFor(RoleAdmin, SuperAdmin)
	assert.NotContains(t, again, Permission("tampered"))
}

func TestAdminSubRolePermissions(t *testing.T) {
	super := &SessionUser{Role: RoleAdmin, AdminRole: SuperAdmin,
		Permissions: PermissionsFor(RoleAdmin, SuperAdmin)}
	membership := &SessionUser{Role: RoleAdmin, AdminRole: MembershipAdmin,
		Permissions: PermissionsFor(RoleAdmin, MembershipAdmin)}
	content := &SessionUser{Role: RoleAdmin, AdminRole: ContentAdmin,
		Permissions: PermissionsFor(RoleAdmin, ContentAdmin)}

	assert.True(t, super.HasPermission(PermAssignAdmin))
	assert.True(t, super.HasPermission(PermSystemSettings))

	assert.True(t, membership.HasPermission(PermApproveWaitlist))
	assert.False(t, membership.HasPermission(PermAssignAdmin))

	assert.True(t, content.HasPermission(PermViewMembers))
	assert.False(t, content.HasPermission(PermCreateMember))
	assert.False(t, content.HasPermission(PermApproveWaitlist))
}

func TestNonAdminPermissions(t *testing.T) {
	member := &SessionUser{Role: RoleMember, Permissions: PermissionsFor(RoleMember, "")}
	assert.True(t, member.HasPermission(PermViewOwnProfile))
	assert.False(t, member.HasPermission(PermViewMembers))

	guest := &SessionUser{Role: RoleGuest, Permissions: PermissionsFor(RoleGuest, "")}
	assert.False(t, guest.HasPermission(PermViewOwnProfile))

	var nobody *SessionUser
	assert.False(t, nobody.HasPermission(PermViewOwnProfile))
}

func TestWaitlistStatusMachine(t *testing.T) {
	assert.True(t, WaitlistPending.Valid())
	assert.False(t, WaitlistPending.Terminal())
	assert.True(t, WaitlistApproved.Terminal())
	assert.True(t, WaitlistRejected.Terminal())
	assert.False(t, WaitlistStatus("vanished").Valid())
}
