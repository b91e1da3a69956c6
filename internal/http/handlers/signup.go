package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/geocoder89/campuserp/internal/registration"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/geocoder89/campuserp/internal/utils"
	"github.com/gin-gonic/gin"
)

type SignupSessions interface {
	Start() (string, *registration.Workflow)
	Get(id string) (*registration.Workflow, error)
	Discard(id string) error
}

type SignupHandler struct {
	sessions SignupSessions
	timeout  time.Duration
}

func NewSignupHandler(sessions SignupSessions, timeout time.Duration) *SignupHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SignupHandler{sessions: sessions, timeout: timeout}
}

// Form bodies carry no binding rules: partial input is normal while typing,
// the workflow decides what blocks a step.
type IdentityBody struct {
	Role      string `json:"role" binding:"max=16"`
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
	Email     string `json:"email" binding:"max=254"`
}

type ContactBody struct {
	Phone string `json:"phone" binding:"max=32"`
}

type AcademicBody struct {
	Department    string `json:"department" binding:"max=64"`
	RollNumber    string `json:"rollNumber" binding:"max=32"`
	EmployeeID    string `json:"employeeId" binding:"max=32"`
	TermsAccepted bool   `json:"termsAccepted"`
}

type SessionResponse struct {
	SessionID string                `json:"sessionId"`
	Form      registration.Snapshot `json:"form"`
}

type SubmitResponse struct {
	Request  signup.Request        `json:"request"`
	Warnings []string              `json:"warnings,omitempty"`
	Form     registration.Snapshot `json:"form"`
}

func (h *SignupHandler) Departments(ctx *gin.Context) {
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"departments": signup.Departments()})
}

func (h *SignupHandler) Start(ctx *gin.Context) {
	id, w := h.sessions.Start()
	ctx.JSON(http.StatusCreated, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

func (h *SignupHandler) workflow(ctx *gin.Context) (string, *registration.Workflow, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Signup session not found")
		return "", nil, false
	}

	w, err := h.sessions.Get(id)
	if err != nil {
		respondWorkflowError(ctx, err)
		return "", nil, false
	}
	return id, w, true
}

func (h *SignupHandler) Get(ctx *gin.Context) {
	id, w, ok := h.workflow(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

func (h *SignupHandler) SetIdentity(ctx *gin.Context) {
	id, w, ok := h.workflow(ctx)
	if !ok {
		return
	}

	var body IdentityBody
	if !BindJSON(ctx, &body) {
		return
	}

	err := w.SetIdentity(registration.Identity{
		Role:      user.Role(body.Role),
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
	})
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

// SetContact stores the phone even when it is malformed; the 422 only tells
// the client to show the inline message.
func (h *SignupHandler) SetContact(ctx *gin.Context) {
	id, w, ok := h.workflow(ctx)
	if !ok {
		return
	}

	var body ContactBody
	if !BindJSON(ctx, &body) {
		return
	}

	if err := w.SetContact(registration.Contact{Phone: body.Phone}); err != nil {
		if errors.Is(err, phone.ErrInvalidPhoneFormat) {
			RespondUnprocessable(ctx, "invalid_phone_format", "Please enter a valid phone number", gin.H{
				"field": "phone",
				"form":  SessionResponse{SessionID: id, Form: w.Snapshot()},
			})
			return
		}
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

func (h *SignupHandler) SetAcademic(ctx *gin.Context) {
	id, w, ok := h.workflow(ctx)
	if !ok {
		return
	}

	var body AcademicBody
	if !BindJSON(ctx, &body) {
		return
	}

	err := w.SetAcademic(registration.Academic{
		Department:    body.Department,
		RollNumber:    body.RollNumber,
		EmployeeID:    body.EmployeeID,
		TermsAccepted: body.TermsAccepted,
	})
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

func (h *SignupHandler) Next(ctx *gin.Context) {
	h.move(ctx, (*registration.Workflow).Next)
}

func (h *SignupHandler) Back(ctx *gin.Context) {
	h.move(ctx, (*registration.Workflow).Back)
}

func (h *SignupHandler) move(ctx *gin.Context, step func(*registration.Workflow) (registration.State, error)) {
	id, w, ok := h.workflow(ctx)
	if !ok {
		return
	}

	if _, err := step(w); err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SessionResponse{SessionID: id, Form: w.Snapshot()})
}

func (h *SignupHandler) Submit(ctx *gin.Context) {
	_, w, ok := h.workflow(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := w.Submit(cctx)
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, SubmitResponse{
		Request:  res.Request,
		Warnings: res.Warnings,
		Form:     w.Snapshot(),
	})
}

func (h *SignupHandler) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Signup session not found")
		return
	}

	if err := h.sessions.Discard(id); err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func respondWorkflowError(ctx *gin.Context, err error) {
	var incomplete *registration.IncompleteError

	switch {
	case errors.As(err, &incomplete):
		RespondConflict(ctx, "validation_incomplete", "Some required fields are missing or invalid", gin.H{
			"missing": incomplete.Missing,
		})
	case errors.Is(err, registration.ErrSessionNotFound):
		RespondNotFound(ctx, "Signup session not found")
	case errors.Is(err, registration.ErrInvalidTransition):
		RespondConflict(ctx, "invalid_transition", "That step is not available from here", nil)
	case errors.Is(err, registration.ErrSubmissionInFlight):
		RespondConflict(ctx, "submission_in_flight", "A submission is already in progress", nil)
	case errors.Is(err, store.ErrDuplicateSignupRequest):
		RespondConflict(ctx, "duplicate_request", "This signup request was already recorded", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		RespondUnavailable(ctx, "Submission timed out, please try again")
	default:
		RespondInternal(ctx, "Could not process signup")
	}
}
