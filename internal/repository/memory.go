package repository

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/models"
)

// MemoryStore keeps accounts, activities and roles in process memory. It
// satisfies the same contracts as the postgres repositories and backs the
// "memory" storage driver.
type MemoryStore struct {
	mu         sync.Mutex
	accounts   map[string]models.Account
	activities map[string]models.Activity
	roles      map[string]models.Role
	nextRoleID int64
	now        func() time.Time
}

// NewMemoryStore seeds the given roles, or USER and ADMIN when none are given.
func NewMemoryStore(roles ...string) *MemoryStore {
	if len(roles) == 0 {
		roles = []string{models.RoleUser, models.RoleAdmin}
	}
	s := &MemoryStore{
		accounts:   make(map[string]models.Account),
		activities: make(map[string]models.Activity),
		roles:      make(map[string]models.Role),
		now:        time.Now,
	}
	for _, name := range roles {
		s.nextRoleID++
		s.roles[name] = models.Role{ID: s.nextRoleID, Name: name}
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, account models.Account, activity models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsLocked(account.Email, account.Username) {
		return ErrDuplicateAccount
	}
	for _, role := range account.Roles {
		if _, ok := s.roles[role]; !ok {
			return ErrRoleNotFound
		}
	}

	now := s.now()
	account.Roles = cloneRoles(account.Roles)
	account.CreatedAt, account.UpdatedAt = now, now
	activity.AccountID = account.ID
	activity.CreatedAt, activity.UpdatedAt = now, now

	s.accounts[account.ID] = account
	s.activities[account.ID] = activity
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsLocked(email, username), nil
}

func (s *MemoryStore) existsLocked(email, username string) bool {
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) || strings.EqualFold(a.Username, username) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (models.Account, error) {
	return s.findAccount(func(a models.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	return s.findAccount(func(a models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *MemoryStore) findAccount(match func(models.Account) bool) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return models.Account{}, ErrAccountNotFound
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id string, current, hash []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || !bytes.Equal(a.PasswordHash, current) {
		return 0, nil
	}
	a.PasswordHash = append([]byte(nil), hash...)
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return 1, nil
}

func (s *MemoryStore) FindByAccountID(_ context.Context, accountID string) (models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.activities[accountID]
	if !ok {
		return models.Activity{}, ErrActivityNotFound
	}
	return act, nil
}

func (s *MemoryStore) FindByActivationID(_ context.Context, activationID string) (models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, act := range s.activities {
		if act.ActivationID == activationID {
			return act, nil
		}
	}
	return models.Activity{}, ErrActivityNotFound
}

func (s *MemoryStore) Activate(_ context.Context, activationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, act := range s.activities {
		if act.ActivationID != activationID {
			continue
		}
		if act.Activated {
			return 0, nil
		}
		act.Activated = true
		act.UpdatedAt = s.now()
		s.activities[id] = act
		return 1, nil
	}
	return 0, nil
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[name]
	if !ok {
		return models.Role{}, ErrRoleNotFound
	}
	return role, nil
}

// GrantRole adds an existing role to an account.
func (s *MemoryStore) GrantRole(accountID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role]; !ok {
		return ErrRoleNotFound
	}
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	for _, r := range a.Roles {
		if r == role {
			return nil
		}
	}
	a.Roles = append(cloneRoles(a.Roles), role)
	s.accounts[accountID] = a
	return nil
}

func cloneAccount(a models.Account) models.Account {
	a.Roles = cloneRoles(a.Roles)
	a.PasswordHash = append([]byte(nil), a.PasswordHash...)
	return a
}

func cloneRoles(roles []string) []string {
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
