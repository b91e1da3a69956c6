package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/store"
)

// Store keeps users and signup requests in process memory. Every mutation
// runs under one lock so concurrent logins and submissions never interleave.
type Store struct {
	mu       sync.RWMutex
	users    []user.User
	requests []signup.Request
}

func NewStore() *Store {
	return &Store{
		users:    make([]user.User, 0),
		requests: make([]signup.Request, 0),
	}
}

func (s *Store) AppendUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == u.ID {
			return store.ErrDuplicateUser
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return store.ErrEmailAlreadyUsed
		}
	}

	s.users = append(s.users, u)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID != u.ID {
			continue
		}
		if !s.users[i].UpdatedAt.Equal(u.UpdatedAt) {
			return store.ErrUserChanged
		}
		u.UpdatedAt = store.NextVersion(u.UpdatedAt, time.Now())
		s.users[i] = u
		return nil
	}
	return user.ErrNotFound
}

func (s *Store) AppendSignupRequest(_ context.Context, r signup.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.ID == r.ID {
			return store.ErrDuplicateSignupRequest
		}
	}

	s.requests = append(s.requests, r)
	return nil
}

// ListUsers returns a copy; callers cannot mutate the store through it.
func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *Store) ListSignupRequests(_ context.Context, filter store.SignupFilter, page store.Page) ([]signup.Request, bool, error) {
	page = page.Normalized()

	s.mu.RLock()
	matched := make([]signup.Request, 0)
	for _, r := range s.requests {
		if filter.Match(r) && page.After(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].SubmittedAt.Before(matched[j].SubmittedAt)
	})

	hasMore := len(matched) > page.Limit
	if hasMore {
		matched = matched[:page.Limit]
	}
	return matched, hasMore, nil
}

func (s *Store) GetSignupRequest(_ context.Context, id string) (signup.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return signup.Request{}, signup.ErrNotFound
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}
