package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"rangeclub/internal/common"
	"rangeclub/internal/common/security"
	"rangeclub/internal/domain/model"
	"rangeclub/internal/domain/repository"
	"rangeclub/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret")}
	security.InitJWT()
	os.Exit(m.Run())
}

type testEnv struct {
	auth     *AuthService
	members  *MemberService
	waitlist *WaitlistService

	memberRepo   repository.MemberRepository
	waitlistRepo repository.WaitlistRepository
}

func newTestEnv(t *testing.T, capacity Capacity) *testEnv {
	t.Helper()
	mu := &sync.Mutex{}
	memberRepo := repository.NewMemoryMemberRepository()
	waitlistRepo := repository.NewMemoryWaitlistRepository()
	credRepo := repository.NewMemoryCredentialRepository()
	adminRepo := repository.NewMemoryAdminRepository()
	sessionRepo := repository.NewMemorySessionRepository()

	return &testEnv{
		auth:         NewAuthService(mu, credRepo, memberRepo, waitlistRepo, adminRepo, sessionRepo, capacity, time.Hour),
		members:      NewMemberService(mu, memberRepo, capacity),
		waitlist:     NewWaitlistService(mu, waitlistRepo, memberRepo, capacity),
		memberRepo:   memberRepo,
		waitlistRepo: waitlistRepo,
	}
}

func registerReq(email string) RegisterRequest {
	return RegisterRequest{
		Email:           email,
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		FirstName:       "Jane",
		LastName:        "Doe",
	}
}

func adminCaller(adminRole model.AdminRole) *model.SessionUser {
	return &model.SessionUser{
		ID:          "admin-1",
		Email:       "admin@club.test",
		Role:        model.RoleAdmin,
		AdminRole:   adminRole,
		Permissions: model.PermissionsFor(model.RoleAdmin, adminRole),
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return common.CodeFromError(err)
}

func TestRegisterValidationOrder(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*RegisterRequest)
		wantCode string
	}{
		{"missing fields", func(r *RegisterRequest) { r.FirstName = "" }, "invalid_request"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not an email" }, "invalid_email"},
		// A malformed email outranks a password mismatch.
		{"bad email before mismatch", func(r *RegisterRequest) {
			r.Email = "nope@"
			r.ConfirmPassword = "different"
		}, "invalid_email"},
		{"password mismatch", func(r *RegisterRequest) { r.ConfirmPassword = "Other1!pass" }, "password_mismatch"},
		{"weak password", func(r *RegisterRequest) {
			r.Password = "alllowercase"
			r.ConfirmPassword = "alllowercase"
		}, "invalid_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerReq("jane@club.test")
			tt.mutate(&req)
			_, err := env.auth.Register(ctx, req)
			assert.Equal(t, tt.wantCode, errCode(t, err))
		})
	}
}

func TestRegisterWeakPasswordDetails(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	req := registerReq("jane@club.test")
	req.Password = "short"
	req.ConfirmPassword = "short"

	_, err := env.auth.Register(context.Background(), req)
	require.Error(t, err)

	details, ok := common.DetailsFromError(err).(map[string]interface{})
	require.True(t, ok)
	failures, ok := details["errors"].([]string)
	require.True(t, ok)
	assert.NotEmpty(t, failures)
}

func TestRegisterRouting(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 2, WaitlistMax: 2})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, registerReq("a@club.test"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	_, err = env.auth.Register(ctx, registerReq("b@club.test"))
	require.NoError(t, err)

	// Member registry is full; the next two land on the waitlist.
	resp, err = env.auth.Register(ctx, registerReq("c@club.test"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleWaitlist, resp.User.Role)

	entry, err := env.waitlistRepo.FindByEmail(ctx, "c@club.test")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)

	_, err = env.auth.Register(ctx, registerReq("d@club.test"))
	require.NoError(t, err)
	entry, err = env.waitlistRepo.FindByEmail(ctx, "d@club.test")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)

	// Both registries full.
	_, err = env.auth.Register(ctx, registerReq("e@club.test"))
	assert.Equal(t, "registration_closed", errCode(t, err))
	assert.Equal(t, 409, common.HTTPStatusFromError(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerReq("jane@club.test"))
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, registerReq("jane@club.test"))
	assert.Equal(t, "email_conflict", errCode(t, err))
}

func TestLoginFailureShapeIsConstant(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerReq("jane@club.test"))
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, errUnknown := env.auth.Login(ctx, LoginRequest{Email: "ghost@club.test", Password: "Str0ng!pass"})
	_, errWrongPw := env.auth.Login(ctx, LoginRequest{Email: "jane@club.test", Password: "Wr0ng!pass"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	assert.Equal(t, common.CodeFromError(errUnknown), common.CodeFromError(errWrongPw))
	assert.Equal(t, "invalid_credentials", common.CodeFromError(errWrongPw))
	assert.Equal(t, 401, common.HTTPStatusFromError(errWrongPw))
}

func TestLoginMintsSessionWithPermissionSnapshot(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerReq("jane@club.test"))
	require.NoError(t, err)

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "jane@club.test", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", resp.User.FirstName)

	session, err := env.auth.ResolveSession(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, session.User.HasPermission(model.PermViewOwnProfile))
	assert.False(t, session.User.HasPermission(model.PermViewMembers))

	// Login records the member's last login.
	member, err := env.memberRepo.FindByEmail(ctx, "jane@club.test")
	require.NoError(t, err)
	assert.NotNil(t, member.LastLogin)
}

func TestRefreshInvalidatesOldToken(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, registerReq("jane@club.test"))
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, resp.Token)
	require.NoError(t, err)
	assert.NotEqual(t, resp.Token, refreshed.Token)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)

	_, err = env.auth.ResolveSession(ctx, resp.Token)
	assert.Equal(t, "session_expired", errCode(t, err))

	_, err = env.auth.ResolveSession(ctx, refreshed.Token)
	assert.NoError(t, err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, registerReq("jane@club.test"))
	require.NoError(t, err)

	out, err := env.auth.Logout(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, out.LoggedOut)
	assert.True(t, out.SessionTerminated)

	// Second logout with the same token still succeeds.
	out, err = env.auth.Logout(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, out.LoggedOut)
	assert.False(t, out.SessionTerminated)

	_, err = env.auth.ResolveSession(ctx, resp.Token)
	assert.Equal(t, "session_expired", errCode(t, err))
}

func TestExpiredSessionIsRejected(t *testing.T) {
	mu := &sync.Mutex{}
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	// A service whose sessions are born expired.
	expired := NewAuthService(mu,
		repository.NewMemoryCredentialRepository(),
		env.memberRepo, env.waitlistRepo,
		repository.NewMemoryAdminRepository(),
		repository.NewMemorySessionRepository(),
		Capacity{ActiveMembersMax: 10, WaitlistMax: 10}, -time.Minute)

	resp, err := expired.Register(context.Background(), registerReq("stale@club.test"))
	require.NoError(t, err)

	_, err = expired.ResolveSession(context.Background(), resp.Token)
	assert.Equal(t, "session_expired", errCode(t, err))
	assert.Equal(t, 401, common.HTTPStatusFromError(err))
}

func TestRegisterAdminAuthorization(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	req := AdminRegisterRequest{
		Email:           "new-admin@club.test",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		FirstName:       "New",
		LastName:        "Admin",
		AdminRole:       model.MembershipAdmin,
	}

	_, err := env.auth.RegisterAdmin(ctx, nil, req)
	assert.Equal(t, "forbidden", errCode(t, err))

	member := &model.SessionUser{
		ID: "m1", Role: model.RoleMember,
		Permissions: model.PermissionsFor(model.RoleMember, ""),
	}
	_, err = env.auth.RegisterAdmin(ctx, member, req)
	assert.Equal(t, "forbidden", errCode(t, err))

	// membership_admin holds no assign_admin permission.
	_, err = env.auth.RegisterAdmin(ctx, adminCaller(model.MembershipAdmin), req)
	assert.Equal(t, "forbidden", errCode(t, err))

	resp, err := env.auth.RegisterAdmin(ctx, adminCaller(model.SuperAdmin), req)
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, model.RoleAdmin, resp.Role)
	assert.Equal(t, model.MembershipAdmin, resp.AdminRole)
}

func TestRegisterAdminValidation(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()
	super := adminCaller(model.SuperAdmin)

	base := AdminRegisterRequest{
		Email:           "new-admin@club.test",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		FirstName:       "New",
		LastName:        "Admin",
		AdminRole:       model.MembershipAdmin,
	}

	missing := base
	missing.AdminRole = ""
	_, err := env.auth.RegisterAdmin(ctx, super, missing)
	assert.Equal(t, "invalid_request", errCode(t, err))

	bogus := base
	bogus.AdminRole = model.AdminRole("overlord")
	_, err = env.auth.RegisterAdmin(ctx, super, bogus)
	assert.Equal(t, "invalid_role", errCode(t, err))
}

func TestOnlySuperAdminCreatesSuperAdmin(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	req := AdminRegisterRequest{
		Email:           "second-super@club.test",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		FirstName:       "Second",
		LastName:        "Super",
		AdminRole:       model.SuperAdmin,
	}

	// An admin holding assign_admin but not the super_admin sub-role.
	almost := adminCaller(model.MembershipAdmin)
	almost.Permissions = append(almost.Permissions, model.PermAssignAdmin)
	_, err := env.auth.RegisterAdmin(ctx, almost, req)
	assert.Equal(t, "forbidden", errCode(t, err))

	_, err = env.auth.RegisterAdmin(ctx, adminCaller(model.SuperAdmin), req)
	assert.NoError(t, err)
}

func TestBootstrapSeedsOnce(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	ctx := context.Background()

	require.NoError(t, env.auth.Bootstrap(ctx, "root@club.test", "Str0ng!pass"))

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "root@club.test", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
	assert.Equal(t, model.SuperAdmin, resp.User.AdminRole)

	// A second bootstrap is a no-op once any credential exists.
	require.NoError(t, env.auth.Bootstrap(ctx, "other-root@club.test", "Str0ng!pass"))
	_, err = env.auth.Login(ctx, LoginRequest{Email: "other-root@club.test", Password: "Str0ng!pass"})
	assert.Error(t, err)
}

func TestBootstrapWithoutSeedConfigured(t *testing.T) {
	env := newTestEnv(t, Capacity{ActiveMembersMax: 10, WaitlistMax: 10})
	assert.NoError(t, env.auth.Bootstrap(context.Background(), "", ""))
}
