package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/campuserp/internal/actorctx"
	"github.com/geocoder89/campuserp/internal/auth"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakeAuthenticator struct {
	authenticateFn func(ctx context.Context, c auth.Credentials) (user.Principal, error)
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, c auth.Credentials) (user.Principal, error) {
	return f.authenticateFn(ctx, c)
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) GenerateAccessToken(p user.Principal) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "token-for-" + p.Identifier, time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authRouter(a handlers.Authenticator, issuer handlers.TokenIssuer) *gin.Engine {
	h := handlers.NewAuthHandler(a, issuer, quietLogger(), nil, time.Second)

	r := newEngine()
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", func(ctx *gin.Context) {
		if ctx.GetHeader("X-Test-User") != "" {
			p := user.Principal{Identifier: ctx.GetHeader("X-Test-User"), Role: user.RoleStudent}
			ctx.Request = ctx.Request.WithContext(actorctx.WithPrincipal(ctx.Request.Context(), p))
		}
		h.Me(ctx)
	})
	return r
}

func TestLogin_Success(t *testing.T) {
	var got auth.Credentials
	a := &fakeAuthenticator{authenticateFn: func(_ context.Context, c auth.Credentials) (user.Principal, error) {
		got = c
		return user.Principal{UserID: "u-1", Identifier: c.Identifier, Role: c.Role}, nil
	}}

	w := do(t, authRouter(a, &fakeIssuer{}), http.MethodPost, "/auth/login",
		`{"identifier":"  student1 ","secret":"student123","role":"Student"}`)
	expectStatus(t, w, http.StatusOK)

	if got.Identifier != "student1" || got.Role != user.RoleStudent {
		t.Fatalf("credentials not normalized: %+v", got)
	}

	resp := decode[handlers.LoginResponse](t, w)
	if resp.AccessToken != "token-for-student1" {
		t.Fatalf("unexpected token %q", resp.AccessToken)
	}
	if resp.Principal.UserID != "u-1" {
		t.Fatalf("unexpected principal %+v", resp.Principal)
	}
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	a := &fakeAuthenticator{authenticateFn: func(context.Context, auth.Credentials) (user.Principal, error) {
		return user.Principal{}, auth.ErrInvalidCredentials
	}}
	r := authRouter(a, &fakeIssuer{})

	bodies := []string{
		`{"identifier":"student1","secret":"wrong","role":"student"}`,
		`{"identifier":"nobody","secret":"x","role":"student"}`,
		`{"identifier":"student1","secret":"student123","role":"wizard"}`,
	}

	for _, body := range bodies {
		w := do(t, r, http.MethodPost, "/auth/login", body)
		expectStatus(t, w, http.StatusUnauthorized)

		env := decode[errorEnvelope](t, w)
		if env.Error.Code != "invalid_credentials" || env.Error.Message != auth.InvalidCredentialsMessage {
			t.Fatalf("non uniform failure for %s: %+v", body, env.Error)
		}
	}
}

func TestLogin_MissingFields(t *testing.T) {
	a := &fakeAuthenticator{authenticateFn: func(context.Context, auth.Credentials) (user.Principal, error) {
		t.Fatal("authenticator must not be called")
		return user.Principal{}, nil
	}}

	w := do(t, authRouter(a, &fakeIssuer{}), http.MethodPost, "/auth/login", `{"identifier":"student1"}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestLogin_UnexpectedErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		issuer *fakeIssuer
		want   int
	}{
		{name: "timeout", err: context.DeadlineExceeded, issuer: &fakeIssuer{}, want: http.StatusServiceUnavailable},
		{name: "store down", err: errors.New("boom"), issuer: &fakeIssuer{}, want: http.StatusInternalServerError},
		{name: "token", issuer: &fakeIssuer{err: errors.New("sign")}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAuthenticator{authenticateFn: func(_ context.Context, c auth.Credentials) (user.Principal, error) {
				if tt.err != nil {
					return user.Principal{}, tt.err
				}
				return user.Principal{Identifier: c.Identifier, Role: c.Role}, nil
			}}

			w := do(t, authRouter(a, tt.issuer), http.MethodPost, "/auth/login",
				`{"identifier":"student1","secret":"student123","role":"student"}`)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestMe(t *testing.T) {
	r := authRouter(&fakeAuthenticator{}, &fakeIssuer{})

	w := do(t, r, http.MethodGet, "/auth/me", "")
	expectStatus(t, w, http.StatusUnauthorized)

	w = do(t, r, http.MethodGet, "/auth/me", "", "X-Test-User", "student1")
	expectStatus(t, w, http.StatusOK)

	p := decode[user.Principal](t, w)
	if p.Identifier != "student1" {
		t.Fatalf("unexpected principal %+v", p)
	}
}
