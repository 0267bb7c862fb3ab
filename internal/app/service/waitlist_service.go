package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"
	"rangeclub/internal/domain/repository"

	"github.com/google/uuid"
)

type WaitlistService struct {
	mu           *sync.Mutex
	waitlistRepo repository.WaitlistRepository
	memberRepo   repository.MemberRepository
	capacity     Capacity
}

func NewWaitlistService(
	mu *sync.Mutex,
	waitlistRepo repository.WaitlistRepository,
	memberRepo repository.MemberRepository,
	capacity Capacity,
) *WaitlistService {
	return &WaitlistService{mu: mu, waitlistRepo: waitlistRepo, memberRepo: memberRepo, capacity: capacity}
}

type ListWaitlistParams struct {
	Status model.WaitlistStatus
	Limit  int
	Offset int
}

type WaitlistPage struct {
	WaitlistMembers []model.WaitlistEntry `json:"waitlistMembers"`
	Total           int                   `json:"total"`
	Limit           int                   `json:"limit"`
	Offset          int                   `json:"offset"`
}

// WaitlistApplication is the public application payload; no authentication is
// required to join the waitlist.
type WaitlistApplication struct {
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Phone            string `json:"phone,omitempty"`
	ReasonForJoining string `json:"reasonForJoining,omitempty"`
	ReferredBy       string `json:"referredBy,omitempty"`
}

type UpdateWaitlistRequest struct {
	Email            *string               `json:"email,omitempty"`
	FirstName        *string               `json:"firstName,omitempty"`
	LastName         *string               `json:"lastName,omitempty"`
	Phone            *string               `json:"phone,omitempty"`
	ReasonForJoining *string               `json:"reasonForJoining,omitempty"`
	ReferredBy       *string               `json:"referredBy,omitempty"`
	Status           *model.WaitlistStatus `json:"status,omitempty"`
}

func (s *WaitlistService) List(ctx context.Context, caller *model.SessionUser, params ListWaitlistParams) (*WaitlistPage, error) {
	if err := requirePermission(caller, model.PermViewWaitlist); err != nil {
		return nil, err
	}

	entries, total, err := s.waitlistRepo.List(ctx, repository.WaitlistFilter{
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return &WaitlistPage{
		WaitlistMembers: entries,
		Total:           total,
		Limit:           params.Limit,
		Offset:          params.Offset,
	}, nil
}

// Get fetches one entry, for holders of view_waitlist or the entrant itself.
func (s *WaitlistService) Get(ctx context.Context, caller *model.SessionUser, id string) (*model.WaitlistEntry, error) {
	isSelf := caller != nil && caller.Role == model.RoleWaitlist && caller.ID == id
	if !isSelf {
		if err := requirePermission(caller, model.PermViewWaitlist); err != nil {
			return nil, err
		}
	}
	entry, err := s.waitlistRepo.FindByID(ctx, id)
	if err != nil {
		return nil, waitlistNotFound(err)
	}
	return entry, nil
}

// Apply files a public membership application onto the waitlist.
func (s *WaitlistService) Apply(ctx context.Context, req WaitlistApplication) (*model.WaitlistEntry, error) {
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return nil, common.E(common.ErrBadRequest, "invalid_request", "Missing required fields")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.waitlistRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.ErrConflict, "email_conflict", "Email already in waitlist")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check waitlist email: %w", err)
	}
	if _, err := s.memberRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.ErrConflict, "email_conflict", "Email already belongs to an active member")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check member email: %w", err)
	}

	pendingCount, err := s.waitlistRepo.CountByStatus(ctx, model.WaitlistPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending waitlist entries: %w", err)
	}
	if pendingCount >= s.capacity.WaitlistMax {
		return nil, common.E(common.ErrConflict, "max_waitlist_reached", "Maximum waitlist capacity reached")
	}

	now := time.Now()
	entry := &model.WaitlistEntry{
		ID:               uuid.NewString(),
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
	return entry, nil
}

// Update edits an entry or moves it through the status machine. PENDING is the
// only non-terminal state; approval additionally needs approve_waitlist and
// member headroom, and spawns a new active member. The returned member is
// non-nil exactly when a promotion happened.
func (s *WaitlistService) Update(ctx context.Context, caller *model.SessionUser, id string, req UpdateWaitlistRequest) (*model.WaitlistEntry, *model.Member, error) {
	isSelf := caller != nil && caller.Role == model.RoleWaitlist && caller.ID == id
	if !isSelf {
		if err := requirePermission(caller, model.PermUpdateWaitlist); err != nil {
			return nil, nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.waitlistRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, waitlistNotFound(err)
	}

	// Status changes are admin territory; self-service payloads may not move
	// the state machine.
	statusChange := !isSelf && req.Status != nil && *req.Status != entry.Status
	if statusChange {
		if !req.Status.Valid() {
			return nil, nil, common.E(common.ErrBadRequest, "invalid_status", "Invalid waitlist status")
		}
		if entry.Status.Terminal() {
			return nil, nil, common.E(common.ErrBadRequest, "invalid_status_transition",
				fmt.Sprintf("Cannot change status of a %s application", entry.Status))
		}
		if *req.Status == model.WaitlistApproved {
			return s.approve(ctx, caller, entry)
		}
	}

	if isSelf {
		// Self-service subset: name, phone, reason.
		if req.FirstName != nil {
			entry.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			entry.LastName = *req.LastName
		}
		if req.Phone != nil {
			entry.Phone = *req.Phone
		}
		if req.ReasonForJoining != nil {
			entry.ReasonForJoining = *req.ReasonForJoining
		}
	} else {
		if req.Email != nil {
			entry.Email = *req.Email
		}
		if req.FirstName != nil {
			entry.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			entry.LastName = *req.LastName
		}
		if req.Phone != nil {
			entry.Phone = *req.Phone
		}
		if req.ReasonForJoining != nil {
			entry.ReasonForJoining = *req.ReasonForJoining
		}
		if req.ReferredBy != nil {
			entry.ReferredBy = *req.ReferredBy
		}
		if statusChange {
			entry.Status = *req.Status
		}
	}
	entry.UpdatedAt = time.Now()

	if err := s.waitlistRepo.Update(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	if statusChange {
		// The entry left the pending set.
		if err := s.waitlistRepo.RecomputePositions(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to recompute waitlist positions: %w", err)
		}
		refreshed, err := s.waitlistRepo.FindByID(ctx, entry.ID)
		if err == nil {
			entry = refreshed
		}
	}
	return entry, nil, nil
}

// Delete removes an entry outright and recomputes positions.
func (s *WaitlistService) Delete(ctx context.Context, caller *model.SessionUser, id string) (*DeleteResult, error) {
	if err := requirePermission(caller, model.PermUpdateWaitlist); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitlistRepo.Delete(ctx, id); err != nil {
		return nil, waitlistNotFound(err)
	}
	if err := s.waitlistRepo.RecomputePositions(ctx); err != nil {
		return nil, fmt.Errorf("failed to recompute waitlist positions: %w", err)
	}
	return &DeleteResult{ID: id, Deleted: true}, nil
}

// approve promotes a pending application into the member registry. The
// waitlist record is kept and marked APPROVED, never deleted. Caller must hold
// the service mutex.
func (s *WaitlistService) approve(ctx context.Context, caller *model.SessionUser, entry *model.WaitlistEntry) (*model.WaitlistEntry, *model.Member, error) {
	if !caller.HasPermission(model.PermApproveWaitlist) {
		return nil, nil, common.E(common.ErrForbidden, "forbidden", "Unauthorized to approve waitlist members")
	}

	activeCount, err := s.memberRepo.CountByStatus(ctx, model.MemberActive)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count active members: %w", err)
	}
	if activeCount >= s.capacity.ActiveMembersMax {
		return nil, nil, common.E(common.ErrConflict, "max_members_reached", "Maximum number of active members reached")
	}

	now := time.Now()
	member := &model.Member{
		ID:           uuid.NewString(),
		Email:        entry.Email,
		FirstName:    entry.FirstName,
		LastName:     entry.LastName,
		Phone:        entry.Phone,
		Status:       model.MemberActive,
		MemberSince:  now,
		MembershipID: newMembershipID(),
		Preferences:  model.DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, nil, fmt.Errorf("failed to create member from waitlist entry: %w", err)
	}

	entry.Status = model.WaitlistApproved
	entry.UpdatedAt = now
	if err := s.waitlistRepo.Update(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to mark waitlist entry approved: %w", err)
	}
	if err := s.waitlistRepo.RecomputePositions(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to recompute waitlist positions: %w", err)
	}
	return entry, member, nil
}

func waitlistNotFound(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.E(common.ErrNotFound, "not_found", "Waitlist member not found")
	}
	return err
}
