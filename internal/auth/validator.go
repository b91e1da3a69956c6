package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/security"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/geocoder89/campuserp/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// InvalidCredentialsMessage is shown to the user for every failed login; it
// never says whether the identifier, the secret or the role was wrong.
const InvalidCredentialsMessage = "Invalid credentials. Please check your details and try again."

type Credentials struct {
	Identifier string
	Secret     string
	Role       user.Role
}

// lastLoginAttempts bounds how often a login is re-checked when the user row
// changes between the read and the lastLogin write.
const lastLoginAttempts = 3

// UserStore is the slice of the storage collaborator the validator needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u user.User) error
}

// AdminCredential is the fixed administrative principal, configured outside the code.
type AdminCredential struct {
	Username     string
	PasswordHash string
}

type Validator struct {
	users   UserStore
	admin   AdminCredential
	latency time.Duration
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Validator)

func WithLatency(d time.Duration) Option {
	return func(v *Validator) { v.latency = d }
}

func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(v *Validator) { v.log = log }
}

func NewValidator(users UserStore, admin AdminCredential, opts ...Option) *Validator {
	v := &Validator{
		users: users,
		admin: admin,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Authenticate decides whether the triple identifies a principal. For students
// and faculty the matched user's lastLogin is persisted before success is returned.
func (v *Validator) Authenticate(ctx context.Context, c Credentials) (user.Principal, error) {
	if err := utils.Wait(ctx, v.latency); err != nil {
		return user.Principal{}, err
	}

	switch {
	case c.Role == user.RoleAdmin:
		return v.authenticateAdmin(c)
	case c.Role.IsApplicant():
		return v.authenticateUser(ctx, c)
	default:
		security.BurnCompare(c.Secret)
		return user.Principal{}, ErrInvalidCredentials
	}
}

func (v *Validator) authenticateAdmin(c Credentials) (user.Principal, error) {
	nameOK := v.admin.Username != "" &&
		subtle.ConstantTimeCompare([]byte(c.Identifier), []byte(v.admin.Username)) == 1

	// always pay for the hash comparison, even when the name is wrong
	secretErr := security.CheckPassword(v.admin.PasswordHash, c.Secret)

	if !nameOK || secretErr != nil {
		return user.Principal{}, ErrInvalidCredentials
	}

	return user.Principal{
		UserID:          "admin:" + v.admin.Username,
		Identifier:      v.admin.Username,
		Name:            "Administrator",
		Role:            user.RoleAdmin,
		Capabilities:    user.AdminCapabilities(),
		AuthenticatedAt: v.now().UTC(),
	}, nil
}

// authenticateUser re-reads and re-checks the user whenever the lastLogin
// write loses a race, so a concurrent change (a deactivation, say) is never
// overwritten and always takes effect.
func (v *Validator) authenticateUser(ctx context.Context, c Credentials) (user.Principal, error) {
	for attempt := 1; ; attempt++ {
		p, err := v.matchUser(ctx, c)
		if errors.Is(err, store.ErrUserChanged) && attempt < lastLoginAttempts {
			v.log.DebugContext(ctx, "last_login_conflict", "attempt", attempt)
			continue
		}
		return p, err
	}
}

func (v *Validator) matchUser(ctx context.Context, c Credentials) (user.Principal, error) {
	users, err := v.users.ListUsers(ctx)
	if err != nil {
		return user.Principal{}, fmt.Errorf("list users: %w", err)
	}

	compared := false
	for _, u := range users {
		if !u.MatchesIdentifier(c.Identifier) || u.Role != c.Role || u.Status != user.StatusActive {
			continue
		}

		compared = true
		if security.CheckPassword(u.PasswordHash, c.Secret) != nil {
			continue
		}

		now := v.now().UTC()
		u.LastLogin = &now

		if err := v.users.UpdateUser(ctx, u); err != nil {
			return user.Principal{}, fmt.Errorf("record last login: %w", err)
		}

		v.log.DebugContext(ctx, "last_login_recorded", "user_id", u.ID, "role", u.Role)

		return user.Principal{
			UserID:          u.ID,
			Identifier:      c.Identifier,
			Name:            u.FullName(),
			Role:            u.Role,
			AuthenticatedAt: now,
		}, nil
	}

	if !compared {
		security.BurnCompare(c.Secret)
	}

	return user.Principal{}, ErrInvalidCredentials
}
