package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/geocoder89/campuserp/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserLister interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

type AdminHandler struct {
	requests store.SignupReader
	users    UserLister
}

func NewAdminHandler(requests store.SignupReader, users UserLister) *AdminHandler {
	return &AdminHandler{requests: requests, users: users}
}

type SignupRequestPage struct {
	Items      []signup.Request `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
	HasMore    bool             `json:"hasMore"`
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return store.DefaultPageLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > store.MaxPageLimit {
		return 0, false
	}
	return n, true
}

func parseApplicantRole(raw string) (*user.Role, bool) {
	if raw == "" {
		return nil, true
	}
	r := user.Role(strings.ToLower(raw))
	if !r.IsApplicant() {
		return nil, false
	}
	return &r, true
}

func (h *AdminHandler) ListSignupRequests(ctx *gin.Context) {
	var filter store.SignupFilter

	role, ok := parseApplicantRole(ctx.Query("role"))
	if !ok {
		RespondBadRequest(ctx, "role must be student or faculty", gin.H{"field": "role"})
		return
	}
	filter.Role = role

	if dept := ctx.Query("department"); dept != "" {
		if !signup.IsDepartment(dept) {
			RespondBadRequest(ctx, "unknown department", gin.H{"field": "department"})
			return
		}
		filter.Department = &dept
	}

	if st := ctx.Query("status"); st != "" {
		s := signup.Status(st)
		filter.Status = &s
	}
	filter.Query = ctx.Query("q")

	limit, ok := parseLimit(ctx.Query("limit"))
	if !ok {
		RespondBadRequest(ctx, "limit must be between 1 and 100", gin.H{"field": "limit"})
		return
	}
	page := store.Page{Limit: limit}

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeSignupCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", gin.H{"field": "cursor"})
			return
		}
		page.AfterSubmittedAt = cur.SubmittedAt
		page.AfterID = cur.ID
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, hasMore, err := h.requests.ListSignupRequests(cctx, filter, page)
	if err != nil {
		RespondInternal(ctx, "Could not list signup requests")
		return
	}

	resp := SignupRequestPage{Items: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		next, err := utils.EncodeSignupCursor(last.SubmittedAt, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not build cursor")
			return
		}
		resp.NextCursor = next
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

func (h *AdminHandler) GetSignupRequest(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Signup request not found")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	r, err := h.requests.GetSignupRequest(cctx, id)
	if err != nil {
		if errors.Is(err, signup.ErrNotFound) {
			RespondNotFound(ctx, "Signup request not found")
			return
		}
		RespondInternal(ctx, "Could not load signup request")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, r)
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	var filter store.UserFilter

	if raw := ctx.Query("role"); raw != "" {
		r := user.Role(strings.ToLower(raw))
		if !r.IsValid() {
			RespondBadRequest(ctx, "unknown role", gin.H{"field": "role"})
			return
		}
		filter.Role = &r
	}

	switch raw := ctx.Query("status"); raw {
	case "":
	case string(user.StatusActive), string(user.StatusInactive):
		s := user.Status(raw)
		filter.Status = &s
	default:
		RespondBadRequest(ctx, "status must be Active or Inactive", gin.H{"field": "status"})
		return
	}
	filter.Query = ctx.Query("q")

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	all, err := h.users.ListUsers(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	items := store.FilterUsers(all, filter)
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
}
