package model

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
	RoleWaitlist Role = "waitlist"
	RoleGuest    Role = "guest"
)

// AdminRole is the admin sub-role used for granular access control.
type AdminRole string

const (
	SuperAdmin      AdminRole = "super_admin"
	MembershipAdmin AdminRole = "membership_admin"
	ContentAdmin    AdminRole = "content_admin"
	SupportAdmin    AdminRole = "support_admin"
)

func (r AdminRole) Valid() bool {
	switch r {
	case SuperAdmin, MembershipAdmin, ContentAdmin, SupportAdmin:
		return true
	}
	return false
}

type Permission string

const (
	PermViewMembers  Permission = "view_members"
	PermCreateMember Permission = "create_member"
	PermUpdateMember Permission = "update_member"
	PermDeleteMember Permission = "delete_member"

	PermViewWaitlist    Permission = "view_waitlist"
	PermUpdateWaitlist  Permission = "update_waitlist"
	PermApproveWaitlist Permission = "approve_waitlist"

	PermAssignAdmin    Permission = "assign_admin"
	PermRevokeAdmin    Permission = "revoke_admin"
	PermSystemSettings Permission = "system_settings"

	PermViewOwnProfile   Permission = "view_own_profile"
	PermUpdateOwnProfile Permission = "update_own_profile"
)

var adminBasePermissions = []Permission{
	PermViewMembers,
	PermCreateMember,
	PermUpdateMember,
	PermDeleteMember,
	PermViewWaitlist,
	PermUpdateWaitlist,
	PermApproveWaitlist,
	PermViewOwnProfile,
	PermUpdateOwnProfile,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin:    adminBasePermissions,
	RoleMember:   {PermViewOwnProfile, PermUpdateOwnProfile},
	RoleWaitlist: {PermViewOwnProfile, PermUpdateOwnProfile},
	RoleGuest:    {},
}

var adminRolePermissions = map[AdminRole][]Permission{
	SuperAdmin: append(append([]Permission{}, adminBasePermissions...),
		PermAssignAdmin, PermRevokeAdmin, PermSystemSettings),
	MembershipAdmin: adminBasePermissions,
	ContentAdmin: {
		PermViewMembers,
		PermViewWaitlist,
		PermViewOwnProfile,
		PermUpdateOwnProfile,
	},
	SupportAdmin: {
		PermViewMembers,
		PermViewWaitlist,
		PermViewOwnProfile,
		PermUpdateOwnProfile,
	},
}

// PermissionsFor resolves the permission set for a role, using the sub-role
// table when the account is an admin. Callers snapshot the result at session
// or account creation time; later edits to the tables do not propagate.
func PermissionsFor(role Role, adminRole AdminRole) []Permission {
	if role == RoleAdmin && adminRole != "" {
		if perms, ok := adminRolePermissions[adminRole]; ok {
			return append([]Permission{}, perms...)
		}
	}
	return append([]Permission{}, rolePermissions[role]...)
}

// Credential links a login identity to a Member, WaitlistEntry or AdminUser
// record sharing the same ID.
type Credential struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	AdminRole    AdminRole `json:"adminRole,omitempty"`
}
