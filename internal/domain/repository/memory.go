package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"
)

// In-memory registries. These are the default backend: process-wide slices
// standing in for a database, guarded by a mutex per registry. Lifetime equals
// process lifetime.

type memoryMemberRepository struct {
	mu      sync.Mutex
	members []model.Member
}

func NewMemoryMemberRepository() MemberRepository {
	return &memoryMemberRepository{}
}

func (r *memoryMemberRepository) Create(ctx context.Context, m *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].Email == m.Email {
			return common.ErrConflict
		}
	}
	r.members = append(r.members, *cloneMember(m))
	return nil
}

func (r *memoryMemberRepository) FindByID(ctx context.Context, id string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ID == id {
			return cloneMember(&r.members[i]), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryMemberRepository) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].Email == email {
			return cloneMember(&r.members[i]), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryMemberRepository) Update(ctx context.Context, m *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ID == m.ID {
			r.members[i] = *cloneMember(m)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memoryMemberRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memoryMemberRepository) List(ctx context.Context, filter MemberFilter) ([]model.Member, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := []model.Member{}
	for i := range r.members {
		if filter.Status != "" && r.members[i].Status != filter.Status {
			continue
		}
		filtered = append(filtered, *cloneMember(&r.members[i]))
	}

	if filter.Sort != "" {
		field := strings.TrimPrefix(filter.Sort, "-")
		desc := strings.HasPrefix(filter.Sort, "-")
		sort.SliceStable(filtered, func(i, j int) bool {
			less := false
			switch field {
			case "memberSince":
				less = filtered[i].MemberSince.Before(filtered[j].MemberSince)
			case "lastName":
				less = filtered[i].LastName < filtered[j].LastName
			case "email":
				less = filtered[i].Email < filtered[j].Email
			case "createdAt":
				less = filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
			}
			if desc {
				return !less
			}
			return less
		})
	}

	return page(filtered, filter.Offset, filter.Limit), len(filtered), nil
}

func (r *memoryMemberRepository) CountByStatus(ctx context.Context, status model.MemberStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for i := range r.members {
		if r.members[i].Status == status {
			count++
		}
	}
	return count, nil
}

type memoryWaitlistRepository struct {
	mu      sync.Mutex
	entries []model.WaitlistEntry
}

func NewMemoryWaitlistRepository() WaitlistRepository {
	return &memoryWaitlistRepository{}
}

func (r *memoryWaitlistRepository) Create(ctx context.Context, e *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Email == e.Email {
			return common.ErrConflict
		}
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memoryWaitlistRepository) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryWaitlistRepository) FindByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Email == email {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryWaitlistRepository) Update(ctx context.Context, e *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == e.ID {
			r.entries[i] = *e
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memoryWaitlistRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memoryWaitlistRepository) List(ctx context.Context, filter WaitlistFilter) ([]model.WaitlistEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := []model.WaitlistEntry{}
	for i := range r.entries {
		if filter.Status != "" && r.entries[i].Status != filter.Status {
			continue
		}
		filtered = append(filtered, r.entries[i])
	}

	// Pending entries first by position, the rest by application date.
	sort.SliceStable(filtered, func(i, j int) bool {
		iPending := filtered[i].Status == model.WaitlistPending
		jPending := filtered[j].Status == model.WaitlistPending
		if iPending != jPending {
			return iPending
		}
		if iPending {
			return filtered[i].Position < filtered[j].Position
		}
		return filtered[i].ApplicationDate.Before(filtered[j].ApplicationDate)
	})

	return page(filtered, filter.Offset, filter.Limit), len(filtered), nil
}

func (r *memoryWaitlistRepository) CountByStatus(ctx context.Context, status model.WaitlistStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for i := range r.entries {
		if r.entries[i].Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memoryWaitlistRepository) RecomputePositions(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := []*model.WaitlistEntry{}
	for i := range r.entries {
		if r.entries[i].Status == model.WaitlistPending {
			pending = append(pending, &r.entries[i])
		} else {
			r.entries[i].Position = 0
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].ApplicationDate.Before(pending[j].ApplicationDate)
	})
	for i, entry := range pending {
		entry.Position = i + 1
	}
	return nil
}

type memoryCredentialRepository struct {
	mu    sync.Mutex
	creds []model.Credential
}

func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{}
}

func (r *memoryCredentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.creds {
		if r.creds[i].Email == cred.Email {
			return common.ErrConflict
		}
	}
	r.creds = append(r.creds, *cred)
	return nil
}

func (r *memoryCredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.creds {
		if r.creds[i].Email == email {
			cred := r.creds[i]
			return &cred, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryCredentialRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.creds), nil
}

type memoryAdminRepository struct {
	mu     sync.Mutex
	admins []model.AdminUser
}

func NewMemoryAdminRepository() AdminRepository {
	return &memoryAdminRepository{}
}

func (r *memoryAdminRepository) Create(ctx context.Context, admin *model.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.admins {
		if r.admins[i].Email == admin.Email {
			return common.ErrConflict
		}
	}
	a := *admin
	a.Permissions = append([]model.Permission{}, admin.Permissions...)
	r.admins = append(r.admins, a)
	return nil
}

func (r *memoryAdminRepository) FindByID(ctx context.Context, id string) (*model.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.admins {
		if r.admins[i].ID == id {
			a := r.admins[i]
			a.Permissions = append([]model.Permission{}, r.admins[i].Permissions...)
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]model.Session)}
}

func (r *memorySessionRepository) Create(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = *s
	return nil
}

func (r *memorySessionRepository) Find(ctx context.Context, token string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	// Expired sessions are inert: purge on lookup.
	if session.Expired(time.Now()) {
		delete(r.sessions, token)
		return nil, common.ErrNotFound
	}
	return &session, nil
}

func (r *memorySessionRepository) Delete(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; !ok {
		return false, nil
	}
	delete(r.sessions, token)
	return true, nil
}

func cloneMember(m *model.Member) *model.Member {
	clone := *m
	if m.Address != nil {
		address := *m.Address
		clone.Address = &address
	}
	if m.Preferences != nil {
		preferences := *m.Preferences
		clone.Preferences = &preferences
	}
	if m.LastLogin != nil {
		lastLogin := *m.LastLogin
		clone.LastLogin = &lastLogin
	}
	return &clone
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
