package service

import (
	"context"
	"testing"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func application(email string) WaitlistApplication {
	return WaitlistApplication{
		Email:     email,
		FirstName: "Wai",
		LastName:  "Ting",
	}
}

func statusPtr(s model.WaitlistStatus) *model.WaitlistStatus { return &s }
func strPtr(s string) *string                                { return &s }

func TestApplyAssignsDensePositions(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	for i, email := range []string{"a@club.test", "b@club.test", "c@club.test"} {
		entry, err := env.waitlist.Apply(ctx, application(email))
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Position)
		assert.Equal(t, model.WaitlistPending, entry.Status)
	}
}

func TestApplyRejectsDuplicateEmails(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 1, WaitlistMax: 10})
	ctx := context.Background()

	_, err := env.waitlist.Apply(ctx, application("dup@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("dup@club.test"))
	assert.Equal(t, "email_conflict", errCode(t, err))

	// An email already in the member registry is rejected too.
	_, err = env.auth.Register(ctx, registerReq("member@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("member@club.test"))
	assert.Equal(t, "email_conflict", errCode(t, err))
}

func TestApplyRespectsWaitlistCapacity(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 2})
	ctx := context.Background()

	_, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("b@club.test"))
	require.NoError(t, err)

	_, err = env.waitlist.Apply(ctx, application("c@club.test"))
	assert.Equal(t, "max_waitlist_reached", errCode(t, err))
	assert.Equal(t, 409, common.HTTPStatusFromError(err))
}

func TestApplyMissingFields(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	_, err := env.waitlist.Apply(context.Background(), WaitlistApplication{Email: "x@club.test"})
	assert.Equal(t, "invalid_request", errCode(t, err))
}

func TestRejectionRecomputesPositions(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	first, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("b@club.test"))
	require.NoError(t, err)
	third, err := env.waitlist.Apply(ctx, application("c@club.test"))
	require.NoError(t, err)

	rejected, _, err := env.waitlist.Update(ctx, admin, first.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistRejected),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistRejected, rejected.Status)
	assert.Equal(t, 0, rejected.Position)

	// The survivors close the gap.
	b, err := env.waitlistRepo.FindByEmail(ctx, "b@club.test")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Position)
	c, err := env.waitlistRepo.FindByID(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Position)
}

func TestTerminalEntriesCannotTransition(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	_, _, err = env.waitlist.Update(ctx, admin, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistRejected),
	})
	require.NoError(t, err)

	_, _, err = env.waitlist.Update(ctx, admin, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistPending),
	})
	assert.Equal(t, "invalid_status_transition", errCode(t, err))
	assert.Equal(t, 400, common.HTTPStatusFromError(err))
}

func TestInvalidStatusRejected(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	_, _, err = env.waitlist.Update(ctx, admin, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistStatus("vanished")),
	})
	assert.Equal(t, "invalid_status", errCode(t, err))
}

func TestApprovalPromotesToMember(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("b@club.test"))
	require.NoError(t, err)

	updated, member, err := env.waitlist.Update(ctx, admin, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistApproved),
	})
	require.NoError(t, err)
	require.NotNil(t, member)

	// The member is a fresh record, not a relabelled waitlist entry.
	assert.NotEqual(t, entry.ID, member.ID)
	assert.Equal(t, "a@club.test", member.Email)
	assert.Equal(t, model.MemberActive, member.Status)
	assert.NotEmpty(t, member.MembershipID)

	// The waitlist entry is kept, marked approved.
	assert.Equal(t, model.WaitlistApproved, updated.Status)
	kept, err := env.waitlistRepo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistApproved, kept.Status)

	b, err := env.waitlistRepo.FindByEmail(ctx, "b@club.test")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Position)
}

func TestApprovalBlockedAtMemberCapacity(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 1, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	_, err := env.auth.Register(ctx, registerReq("full@club.test"))
	require.NoError(t, err)

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	_, _, err = env.waitlist.Update(ctx, admin, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistApproved),
	})
	assert.Equal(t, "max_members_reached", errCode(t, err))

	// The entry is untouched by the failed approval.
	kept, err := env.waitlistRepo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistPending, kept.Status)
}

func TestApprovalNeedsApprovePermission(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	// Holds update_waitlist but not approve_waitlist.
	caller := &model.SessionUser{
		ID: "limited", Role: model.RoleAdmin, AdminRole: model.SupportAdmin,
		Permissions: []model.Permission{model.PermUpdateWaitlist, model.PermViewWaitlist},
	}
	_, _, err = env.waitlist.Update(ctx, caller, entry.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistApproved),
	})
	assert.Equal(t, "forbidden", errCode(t, err))
	assert.Equal(t, 403, common.HTTPStatusFromError(err))
}

func TestSelfServiceUpdateSubset(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	self := &model.SessionUser{
		ID: entry.ID, Email: entry.Email, Role: model.RoleWaitlist,
		Permissions: model.PermissionsFor(model.RoleWaitlist, ""),
	}

	updated, member, err := env.waitlist.Update(ctx, self, entry.ID, UpdateWaitlistRequest{
		Phone:            strPtr("555-0100"),
		ReasonForJoining: strPtr("practical shooting"),
		Email:            strPtr("stolen@club.test"),
		Status:           statusPtr(model.WaitlistApproved),
	})
	require.NoError(t, err)
	assert.Nil(t, member)

	// Phone and reason stick; email and status edits are ignored for
	// self-service callers.
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "practical shooting", updated.ReasonForJoining)
	assert.Equal(t, "a@club.test", updated.Email)
	assert.Equal(t, model.WaitlistPending, updated.Status)
}

func TestWaitlistGetAuthorization(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	entry, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)

	_, err = env.waitlist.Get(ctx, nil, entry.ID)
	assert.Equal(t, "unauthorized", errCode(t, err))

	self := &model.SessionUser{ID: entry.ID, Role: model.RoleWaitlist}
	got, err := env.waitlist.Get(ctx, self, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	other := &model.SessionUser{ID: "someone-else", Role: model.RoleWaitlist}
	_, err = env.waitlist.Get(ctx, other, entry.ID)
	assert.Equal(t, "forbidden", errCode(t, err))
}

func TestWaitlistDeleteRecomputes(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	first, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("b@club.test"))
	require.NoError(t, err)

	result, err := env.waitlist.Delete(ctx, admin, first.ID)
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	b, err := env.waitlistRepo.FindByEmail(ctx, "b@club.test")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Position)

	_, err = env.waitlist.Delete(ctx, admin, first.ID)
	assert.Equal(t, "not_found", errCode(t, err))
}

func TestWaitlistListOrdersPendingFirst(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	admin := adminCaller(model.MembershipAdmin)

	first, err := env.waitlist.Apply(ctx, application("a@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("b@club.test"))
	require.NoError(t, err)
	_, err = env.waitlist.Apply(ctx, application("c@club.test"))
	require.NoError(t, err)

	_, _, err = env.waitlist.Update(ctx, admin, first.ID, UpdateWaitlistRequest{
		Status: statusPtr(model.WaitlistRejected),
	})
	require.NoError(t, err)

	page, err := env.waitlist.List(ctx, admin, ListWaitlistParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.WaitlistMembers, 3)
	assert.Equal(t, "b@club.test", page.WaitlistMembers[0].Email)
	assert.Equal(t, "c@club.test", page.WaitlistMembers[1].Email)
	assert.Equal(t, "a@club.test", page.WaitlistMembers[2].Email)

	// Status filter narrows the set and the total.
	pending, err := env.waitlist.List(ctx, admin, ListWaitlistParams{
		Status: model.WaitlistPending, Limit: 10,
	})
	require.NoError(t, err)
	assert.Len(t, pending.WaitlistMembers, 2)
	assert.Equal(t, 2, pending.Total)
}
