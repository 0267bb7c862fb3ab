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

type MemberService struct {
	mu         *sync.Mutex
	memberRepo repository.MemberRepository
	capacity   Capacity
}

func NewMemberService(mu *sync.Mutex, memberRepo repository.MemberRepository, capacity Capacity) *MemberService {
	return &MemberService{mu: mu, memberRepo: memberRepo, capacity: capacity}
}

type ListMembersParams struct {
	Status model.MemberStatus
	Limit  int
	Offset int
	Sort   string
}

type MembersPage struct {
	Members []model.Member `json:"members"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type CreateMemberRequest struct {
	Email          string             `json:"email"`
	FirstName      string             `json:"firstName"`
	LastName       string             `json:"lastName"`
	Phone          string             `json:"phone,omitempty"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
	Bio            string             `json:"bio,omitempty"`
	Address        *model.Address     `json:"address,omitempty"`
	Preferences    *model.Preferences `json:"preferences,omitempty"`
}

// UpdateMemberRequest uses pointers so absent fields are left untouched.
type UpdateMemberRequest struct {
	Email          *string             `json:"email,omitempty"`
	FirstName      *string             `json:"firstName,omitempty"`
	LastName       *string             `json:"lastName,omitempty"`
	Phone          *string             `json:"phone,omitempty"`
	Bio            *string             `json:"bio,omitempty"`
	ProfilePicture *string             `json:"profilePicture,omitempty"`
	Address        *model.Address      `json:"address,omitempty"`
	Preferences    *model.Preferences  `json:"preferences,omitempty"`
	Status         *model.MemberStatus `json:"status,omitempty"`
}

type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (s *MemberService) List(ctx context.Context, caller *model.SessionUser, params ListMembersParams) (*MembersPage, error) {
	if err := requirePermission(caller, model.PermViewMembers); err != nil {
		return nil, err
	}

	members, total, err := s.memberRepo.List(ctx, repository.MemberFilter{
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
		Sort:   params.Sort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return &MembersPage{
		Members: members,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
	}, nil
}

// Get fetches one member, for holders of view_members or the member itself.
func (s *MemberService) Get(ctx context.Context, caller *model.SessionUser, id string) (*model.Member, error) {
	isSelf := caller != nil && caller.Role == model.RoleMember && caller.ID == id
	if !isSelf {
		if err := requirePermission(caller, model.PermViewMembers); err != nil {
			return nil, err
		}
	}
	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, memberNotFound(err)
	}
	return member, nil
}

func (s *MemberService) Create(ctx context.Context, caller *model.SessionUser, req CreateMemberRequest) (*model.Member, error) {
	if err := requirePermission(caller, model.PermCreateMember); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activeCount, err := s.memberRepo.CountByStatus(ctx, model.MemberActive)
	if err != nil {
		return nil, fmt.Errorf("failed to count active members: %w", err)
	}
	if activeCount >= s.capacity.ActiveMembersMax {
		return nil, common.E(common.ErrConflict, "max_members_reached", "Maximum number of active members reached")
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return nil, common.E(common.ErrBadRequest, "invalid_request", "Missing required fields")
	}
	if _, err := s.memberRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.ErrConflict, "email_conflict", "Email already in use")
	}

	now := time.Now()
	member := &model.Member{
		ID:             uuid.NewString(),
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		Status:         model.MemberActive,
		MemberSince:    now,
		MembershipID:   newMembershipID(),
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
		Address:        req.Address,
		Preferences:    req.Preferences,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if member.Preferences == nil {
		member.Preferences = model.DefaultPreferences()
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

// Update applies a partial update. Members may edit their own record, limited
// to the safe field subset; email (and status) changes need update_member.
func (s *MemberService) Update(ctx context.Context, caller *model.SessionUser, id string, req UpdateMemberRequest) (*model.Member, error) {
	isSelf := caller != nil && caller.Role == model.RoleMember && caller.ID == id
	if !isSelf {
		if err := requirePermission(caller, model.PermUpdateMember); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, memberNotFound(err)
	}

	if !isSelf {
		if req.Email != nil {
			member.Email = *req.Email
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				return nil, common.E(common.ErrBadRequest, "invalid_status", "Invalid member status")
			}
			member.Status = *req.Status
		}
	}
	if req.FirstName != nil {
		member.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		member.LastName = *req.LastName
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Bio != nil {
		member.Bio = *req.Bio
	}
	if req.ProfilePicture != nil {
		member.ProfilePicture = *req.ProfilePicture
	}
	if req.Address != nil {
		member.Address = req.Address
	}
	if req.Preferences != nil {
		member.Preferences = req.Preferences
	}
	member.UpdatedAt = time.Now()

	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

// Delete removes the record outright. Not self-serviceable.
func (s *MemberService) Delete(ctx context.Context, caller *model.SessionUser, id string) (*DeleteResult, error) {
	if err := requirePermission(caller, model.PermDeleteMember); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberRepo.Delete(ctx, id); err != nil {
		return nil, memberNotFound(err)
	}
	return &DeleteResult{ID: id, Deleted: true}, nil
}

// requirePermission distinguishes an anonymous caller (401) from an
// authenticated one lacking the permission (403).
func requirePermission(caller *model.SessionUser, perm model.Permission) error {
	if caller == nil {
		return common.E(common.ErrUnauthorized, "unauthorized", "Authentication required")
	}
	if !caller.HasPermission(perm) {
		return common.E(common.ErrForbidden, "forbidden", "Insufficient permissions")
	}
	return nil
}

func memberNotFound(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.E(common.ErrNotFound, "not_found", "Member not found")
	}
	return err
}
