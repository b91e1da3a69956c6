package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/campuserp/internal/actorctx"
	"github.com/geocoder89/campuserp/internal/auth"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, c auth.Credentials) (user.Principal, error)
}

type TokenIssuer interface {
	GenerateAccessToken(p user.Principal) (string, time.Time, error)
}

type AuthHandler struct {
	validator Authenticator
	tokens    TokenIssuer
	log       *slog.Logger
	prom      *observability.Prom
	timeout   time.Duration
}

func NewAuthHandler(v Authenticator, tokens TokenIssuer, log *slog.Logger, prom *observability.Prom, timeout time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthHandler{validator: v, tokens: tokens, log: log, prom: prom, timeout: timeout}
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Secret     string `json:"secret" binding:"required,max=72"`
	Role       string `json:"role" binding:"required"`
}

type LoginResponse struct {
	AccessToken string         `json:"accessToken"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	Principal   user.Principal `json:"principal"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role := user.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	// tied to the request so a client hang-up cancels the simulated delay
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.validator.Authenticate(cctx, auth.Credentials{
		Identifier: strings.TrimSpace(req.Identifier),
		Secret:     req.Secret,
		Role:       role,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.prom.ObserveLogin(string(role), "invalid")
			h.log.InfoContext(ctx.Request.Context(), "login_failed", "role", role)
			RespondUnAuthorized(ctx, "invalid_credentials", auth.InvalidCredentialsMessage)
			return
		}

		h.prom.ObserveLogin(string(role), "error")
		h.log.ErrorContext(ctx.Request.Context(), "login_error", "role", role, "err", err)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			RespondUnavailable(ctx, "Sign in timed out, please try again")
			return
		}
		RespondInternal(ctx, "Could not sign in")
		return
	}

	token, expiresAt, err := h.tokens.GenerateAccessToken(p)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.prom.ObserveLogin(string(role), "success")
	h.log.InfoContext(ctx.Request.Context(), "login_succeeded", "role", role, "user_id", p.UserID)

	ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Principal:   p,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	p, ok := actorctx.PrincipalFrom(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}
	ctx.JSON(http.StatusOK, p)
}
