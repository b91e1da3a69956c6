// Package store declares the storage collaborator shared by the credential
// validator and the registration workflow, plus the read side used by admin listings.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
)

var (
	ErrEmailAlreadyUsed       = errors.New("email is already in use")
	ErrDuplicateUser          = errors.New("user already exists")
	ErrDuplicateSignupRequest = errors.New("signup request already exists")
	// ErrUserChanged means the row was written by someone else after the caller read it.
	ErrUserChanged = errors.New("user was modified concurrently")
)

// Store is the only surface the validator and the workflow depend on.
type Store interface {
	AppendUser(ctx context.Context, u user.User) error
	// UpdateUser replaces the row only while its stored UpdatedAt still equals
	// u.UpdatedAt, i.e. the version the caller read. The store stamps the new
	// UpdatedAt itself. A stale write returns ErrUserChanged.
	UpdateUser(ctx context.Context, u user.User) error
	AppendSignupRequest(ctx context.Context, r signup.Request) error
	ListUsers(ctx context.Context) ([]user.User, error)
}

type SignupReader interface {
	ListSignupRequests(ctx context.Context, filter SignupFilter, page Page) ([]signup.Request, bool, error)
	GetSignupRequest(ctx context.Context, id string) (signup.Request, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NextVersion returns a fresh UpdatedAt stamp that is strictly after prev at
// microsecond precision, the resolution postgres keeps.
func NextVersion(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

// Page is keyset pagination over (submittedAt, id).
type Page struct {
	AfterSubmittedAt time.Time
	AfterID          string
	Limit            int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// After reports whether r sorts strictly after the page cursor.
func (p Page) After(r signup.Request) bool {
	if p.AfterID == "" && p.AfterSubmittedAt.IsZero() {
		return true
	}
	if r.SubmittedAt.Equal(p.AfterSubmittedAt) {
		return r.ID > p.AfterID
	}
	return r.SubmittedAt.After(p.AfterSubmittedAt)
}

// with pointers if optional, nil means "any"
type SignupFilter struct {
	Role       *user.Role
	Department *string
	Status     *signup.Status
	Query      string
}

func (f SignupFilter) Match(r signup.Request) bool {
	if f.Role != nil && r.Role != *f.Role {
		return false
	}
	if f.Department != nil && r.Department != *f.Department {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return containsFold(f.Query, r.FirstName+" "+r.LastName, r.Email, r.RollNumber, r.EmployeeID, r.Phone)
}

type UserFilter struct {
	Role   *user.Role
	Status *user.Status
	Query  string
}

func (f UserFilter) Match(u user.User) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.Status != nil && u.Status != *f.Status {
		return false
	}
	return containsFold(f.Query, u.FullName(), u.Username, u.Email, u.RollNumber, u.EmployeeID, u.Department)
}

// FilterUsers applies f and keeps the original order.
func FilterUsers(users []user.User, f UserFilter) []user.User {
	out := make([]user.User, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
