package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rangeclub/internal/common"
	"rangeclub/internal/common/security"
	"rangeclub/internal/domain/model"
	"rangeclub/internal/domain/repository"

	"github.com/google/uuid"
)

// AuthService owns the credential and session registries and the registration
// routing between the member and waitlist registries.
type AuthService struct {
	// mu serializes every capacity check + insert so two concurrent
	// registrations cannot both pass the check and exceed the cap. Shared with
	// the member and waitlist services.
	mu *sync.Mutex

	credRepo     repository.CredentialRepository
	memberRepo   repository.MemberRepository
	waitlistRepo repository.WaitlistRepository
	adminRepo    repository.AdminRepository
	sessionRepo  repository.SessionRepository

	capacity   Capacity
	sessionTTL time.Duration
}

func NewAuthService(
	mu *sync.Mutex,
	credRepo repository.CredentialRepository,
	memberRepo repository.MemberRepository,
	waitlistRepo repository.WaitlistRepository,
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	capacity Capacity,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		mu:           mu,
		credRepo:     credRepo,
		memberRepo:   memberRepo,
		waitlistRepo: waitlistRepo,
		adminRepo:    adminRepo,
		sessionRepo:  sessionRepo,
		capacity:     capacity,
		sessionTTL:   sessionTTL,
	}
}

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirmPassword"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Phone            string `json:"phone,omitempty"`
	ReasonForJoining string `json:"reasonForJoining,omitempty"`
	ReferredBy       string `json:"referredBy,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminRegisterRequest struct {
	Email           string          `json:"email"`
	Password        string          `json:"password"`
	ConfirmPassword string          `json:"confirmPassword"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	AdminRole       model.AdminRole `json:"adminRole"`
}

type AuthUserSummary struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Role      model.Role      `json:"role"`
	AdminRole model.AdminRole `json:"adminRole,omitempty"`
}

type AuthResponse struct {
	User      AuthUserSummary `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type AdminCreatedResponse struct {
	AuthUserSummary
	Created bool `json:"created"`
}

type LogoutResponse struct {
	LoggedOut         bool `json:"loggedOut"`
	SessionTerminated bool `json:"sessionTerminated"`
}

// Register routes a public registration: into the member registry while below
// the active cap, then onto the waitlist, then a capacity conflict. A
// credential and a session are created on either successful branch.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validateRegistration(req.Email, req.Password, req.ConfirmPassword, req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.credRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.ErrConflict, "email_conflict", "Email is already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing credential: %w", err)
	}

	now := time.Now()
	userID := uuid.NewString()
	role := model.RoleWaitlist

	activeCount, err := s.memberRepo.CountByStatus(ctx, model.MemberActive)
	if err != nil {
		return nil, fmt.Errorf("failed to count active members: %w", err)
	}

	if activeCount < s.capacity.ActiveMembersMax {
		role = model.RoleMember
		member := &model.Member{
			ID:           userID,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Status:       model.MemberActive,
			MemberSince:  now,
			MembershipID: newMembershipID(),
			Preferences:  model.DefaultPreferences(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.memberRepo.Create(ctx, member); err != nil {
			return nil, fmt.Errorf("failed to create member: %w", err)
		}
	} else {
		pendingCount, err := s.waitlistRepo.CountByStatus(ctx, model.WaitlistPending)
		if err != nil {
			return nil, fmt.Errorf("failed to count pending waitlist entries: %w", err)
		}
		if pendingCount >= s.capacity.WaitlistMax {
			return nil, common.E(common.ErrConflict, "registration_closed",
				"Registration is currently closed. Both member list and waitlist are at capacity")
		}
		entry := &model.WaitlistEntry{
			ID:               userID,
			Email:            req.Email,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Phone:            req.Phone,
			Status:           model.WaitlistPending,
			ApplicationDate:  now,
			Position:         pendingCount + 1,
			ReasonForJoining: req.ReasonForJoining,
			ReferredBy:       req.ReferredBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.waitlistRepo.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
		}
		if err := s.waitlistRepo.RecomputePositions(ctx); err != nil {
			return nil, fmt.Errorf("failed to recompute waitlist positions: %w", err)
		}
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	cred := &model.Credential{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	session, err := s.createSession(ctx, userID, req.Email, role, "")
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: AuthUserSummary{
			ID:        userID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      role,
		},
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Login verifies credentials and mints a new session. The failure shape never
// reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.E(common.ErrBadRequest, "invalid_request", "Email and password required")
	}

	cred, err := s.credRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, cred.PasswordHash) {
		return nil, invalidCredentials()
	}

	firstName, lastName := s.resolveName(ctx, cred.ID, cred.Role)
	if cred.Role == model.RoleMember {
		s.touchLastLogin(ctx, cred.ID)
	}

	session, err := s.createSession(ctx, cred.ID, cred.Email, cred.Role, cred.AdminRole)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: AuthUserSummary{
			ID:        cred.ID,
			Email:     cred.Email,
			FirstName: firstName,
			LastName:  lastName,
			Role:      cred.Role,
			AdminRole: cred.AdminRole,
		},
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// RegisterAdmin creates an admin account. The caller needs assign_admin, and
// only a super admin may create another super admin. No session is created for
// the new account; the admin logs in separately.
func (s *AuthService) RegisterAdmin(ctx context.Context, caller *model.SessionUser, req AdminRegisterRequest) (*AdminCreatedResponse, error) {
	if caller == nil || caller.Role != model.RoleAdmin || !caller.HasPermission(model.PermAssignAdmin) {
		return nil, common.E(common.ErrForbidden, "forbidden",
			"Forbidden. Requires admin with permission to assign admin roles")
	}

	if req.AdminRole == "" {
		return nil, common.E(common.ErrBadRequest, "invalid_request", "Missing required fields")
	}
	if err := validateRegistration(req.Email, req.Password, req.ConfirmPassword, req.FirstName, req.LastName); err != nil {
		return nil, err
	}
	if !req.AdminRole.Valid() {
		return nil, common.E(common.ErrBadRequest, "invalid_role", "Invalid admin role")
	}
	if req.AdminRole == model.SuperAdmin && caller.AdminRole != model.SuperAdmin {
		return nil, common.E(common.ErrForbidden, "forbidden", "Only super admins can create other super admins")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.credRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.ErrConflict, "email_conflict", "Email is already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing credential: %w", err)
	}

	now := time.Now()
	userID := uuid.NewString()
	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &model.Credential{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         model.RoleAdmin,
		AdminRole:    req.AdminRole,
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	admin := &model.AdminUser{
		ID:        userID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.RoleAdmin,
		AdminRole: req.AdminRole,
		// Permission snapshot: later edits to the sub-role table do not
		// propagate to this record.
		Permissions: model.PermissionsFor(model.RoleAdmin, req.AdminRole),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return &AdminCreatedResponse{
		AuthUserSummary: AuthUserSummary{
			ID:        userID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      model.RoleAdmin,
			AdminRole: req.AdminRole,
		},
		Created: true,
	}, nil
}

// Refresh atomically invalidates the presented token and mints a new session
// carrying the same identity, expiring a full TTL from now.
func (s *AuthService) Refresh(ctx context.Context, token string) (*AuthResponse, error) {
	session, err := s.ResolveSession(ctx, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionRepo.Delete(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to invalidate session: %w", err)
	}

	user := session.User
	newSession, err := s.createSession(ctx, user.ID, user.Email, user.Role, user.AdminRole)
	if err != nil {
		return nil, err
	}

	firstName, lastName := s.resolveName(ctx, user.ID, user.Role)
	return &AuthResponse{
		User: AuthUserSummary{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: firstName,
			LastName:  lastName,
			Role:      user.Role,
			AdminRole: user.AdminRole,
		},
		Token:     newSession.Token,
		ExpiresAt: newSession.ExpiresAt,
	}, nil
}

// Logout is idempotent: a dead token still succeeds, it just reports that no
// session was actually terminated.
func (s *AuthService) Logout(ctx context.Context, token string) (*LogoutResponse, error) {
	removed, err := s.sessionRepo.Delete(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to remove session: %w", err)
	}
	return &LogoutResponse{LoggedOut: true, SessionTerminated: removed}, nil
}

// ResolveSession returns the live session for a bearer token. Expired and
// unknown tokens both fail as unauthorized; expired sessions are purged by the
// repository on lookup.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.sessionRepo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrUnauthorized, "session_expired", "Session expired or invalid")
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return session, nil
}

// Bootstrap seeds a super admin when the credential store is empty, so the
// privileged register-admin endpoint is reachable on a fresh deployment.
func (s *AuthService) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.credRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count credentials: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	userID := uuid.NewString()
	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}
	if err := s.credRepo.Create(ctx, &model.Credential{
		ID:           userID,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         model.RoleAdmin,
		AdminRole:    model.SuperAdmin,
	}); err != nil {
		return fmt.Errorf("failed to seed admin credential: %w", err)
	}
	return s.adminRepo.Create(ctx, &model.AdminUser{
		ID:          userID,
		Email:       email,
		FirstName:   "System",
		LastName:    "Admin",
		Role:        model.RoleAdmin,
		AdminRole:   model.SuperAdmin,
		Permissions: model.PermissionsFor(model.RoleAdmin, model.SuperAdmin),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *AuthService) createSession(ctx context.Context, userID, email string, role model.Role, adminRole model.AdminRole) (*model.Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.sessionTTL)

	token, err := security.GenerateToken(userID, string(role), string(adminRole), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session := &model.Session{
		Token: token,
		User: model.SessionUser{
			ID:          userID,
			Email:       email,
			Role:        role,
			AdminRole:   adminRole,
			Permissions: model.PermissionsFor(role, adminRole),
		},
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// resolveName looks up the display name in whichever registry matches the
// account's role. A missing record is not an error; the name is just empty.
func (s *AuthService) resolveName(ctx context.Context, userID string, role model.Role) (string, string) {
	switch role {
	case model.RoleAdmin:
		if admin, err := s.adminRepo.FindByID(ctx, userID); err == nil {
			return admin.FirstName, admin.LastName
		}
	case model.RoleMember:
		if member, err := s.memberRepo.FindByID(ctx, userID); err == nil {
			return member.FirstName, member.LastName
		}
	case model.RoleWaitlist:
		if entry, err := s.waitlistRepo.FindByID(ctx, userID); err == nil {
			return entry.FirstName, entry.LastName
		}
	}
	return "", ""
}

func (s *AuthService) touchLastLogin(ctx context.Context, userID string) {
	member, err := s.memberRepo.FindByID(ctx, userID)
	if err != nil {
		return
	}
	now := time.Now()
	member.LastLogin = &now
	s.memberRepo.Update(ctx, member) //nolint:errcheck // best effort
}

// validateRegistration applies the shared field checks in a fixed order:
// required fields, email shape, password match, then password policy.
func validateRegistration(email, password, confirmPassword, firstName, lastName string) error {
	if email == "" || password == "" || confirmPassword == "" || firstName == "" || lastName == "" {
		return common.E(common.ErrBadRequest, "invalid_request", "Missing required fields")
	}
	if !security.ValidEmail(email) {
		return common.E(common.ErrBadRequest, "invalid_email", "Invalid email format")
	}
	if password != confirmPassword {
		return common.E(common.ErrBadRequest, "password_mismatch", "Passwords do not match")
	}
	if policyErrors := security.ValidatePassword(password); len(policyErrors) > 0 {
		return common.ED(common.ErrBadRequest, "invalid_password",
			"Password does not meet requirements", map[string]interface{}{"errors": policyErrors})
	}
	return nil
}

func invalidCredentials() error {
	return common.E(common.ErrUnauthorized, "invalid_credentials", "Invalid email or password")
}
