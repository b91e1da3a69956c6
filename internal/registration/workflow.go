// Package registration runs the three step signup form that turns applicant
// input into a pending signup request.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/geocoder89/campuserp/internal/queue"
	"github.com/geocoder89/campuserp/internal/utils"
)

// RequestAppender is the one storage capability the workflow needs.
type RequestAppender interface {
	AppendSignupRequest(ctx context.Context, r signup.Request) error
}

// notifyTimeout bounds the notifications and retry enqueues that follow a
// recorded request.
const notifyTimeout = 10 * time.Second

type Deps struct {
	Store    RequestAppender
	Notifier notifications.Notifier
	// Retry is optional. Without it failed notifications are only reported.
	Retry   queue.Queue
	Rule    phone.Rule
	Log     *slog.Logger
	Prom    *observability.Prom
	Latency time.Duration
	Now     func() time.Time
}

type Workflow struct {
	deps Deps

	mu         sync.Mutex
	state      State
	identity   Identity
	contact    Contact
	academic   Academic
	phoneErr   error
	submitting bool
}

type SubmitResult struct {
	Request  signup.Request `json:"request"`
	Warnings []string       `json:"warnings,omitempty"`
}

func New(deps Deps) *Workflow {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rule.CountryCode == "" {
		deps.Rule = phone.India("")
	}

	return &Workflow{deps: deps, state: StateIdentity}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) SetIdentity(in Identity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmissionInFlight
	}
	w.identity = in.trimmed()
	return nil
}

// SetContact always keeps the value. A bad number is reported so it can be
// shown next to the field, but it never blocks further edits.
func (w *Workflow) SetContact(in Contact) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmissionInFlight
	}

	w.contact = in
	_, w.phoneErr = w.deps.Rule.Validate(in.Phone)
	return w.phoneErr
}

func (w *Workflow) SetAcademic(in Academic) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmissionInFlight
	}
	w.academic = in.trimmed()
	return nil
}

func (w *Workflow) Next() (State, error) {
	return w.move(ActionNext)
}

func (w *Workflow) Back() (State, error) {
	return w.move(ActionBack)
}

func (w *Workflow) move(a Action) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return w.state, ErrSubmissionInFlight
	}

	to, ok := nextState(w.state, a)
	if !ok || a == ActionSubmit {
		return w.state, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, a, w.state)
	}

	if a == ActionNext {
		if missing := w.guardLocked(w.state); len(missing) > 0 {
			return w.state, &IncompleteError{Missing: missing}
		}
	}

	w.state = to
	return w.state, nil
}

// guardLocked returns what is missing to leave the given step forward.
func (w *Workflow) guardLocked(s State) []string {
	switch s {
	case StateIdentity:
		return checkIdentity(w.identity)
	case StateContact:
		return checkContact(w.deps.Rule, w.contact)
	case StateAcademic:
		return checkAcademic(w.identity.Role, w.academic)
	default:
		return []string{"step"}
	}
}

// Submit records the request and notifies the applicant and administrators.
// Every check runs before the first side effect. A storage failure aborts
// with the form intact; notification failures come back as warnings.
func (w *Workflow) Submit(ctx context.Context) (SubmitResult, error) {
	w.mu.Lock()

	if w.submitting {
		w.mu.Unlock()
		return SubmitResult{}, ErrSubmissionInFlight
	}

	role := w.identity.Role

	if _, ok := nextState(w.state, ActionSubmit); !ok {
		from := w.state
		w.mu.Unlock()
		w.deps.Prom.ObserveSignup(string(role), "rejected")
		return SubmitResult{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ActionSubmit, from)
	}

	// phone is checked again, it may have been edited after step 2
	var missing []string
	for _, s := range []State{StateIdentity, StateContact, StateAcademic} {
		missing = append(missing, w.guardLocked(s)...)
	}
	if len(missing) > 0 {
		w.mu.Unlock()
		w.deps.Prom.ObserveSignup(string(role), "rejected")
		return SubmitResult{}, &IncompleteError{Missing: missing}
	}

	app := signup.Application{
		FirstName:  w.identity.FirstName,
		LastName:   w.identity.LastName,
		Email:      w.identity.Email,
		Phone:      w.deps.Rule.Format(w.contact.Phone),
		Department: w.academic.Department,
		Role:       w.identity.Role,
		RollNumber: w.academic.RollNumber,
		EmployeeID: w.academic.EmployeeID,
	}
	w.submitting = true
	w.mu.Unlock()

	req, err := w.commit(ctx, app)
	if err != nil {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
		w.deps.Prom.ObserveSignup(string(app.Role), "error")
		return SubmitResult{}, err
	}

	// the request is recorded, so notifications outlive the caller
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	warnings := w.notify(nctx, req)
	cancel()

	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()

	w.deps.Prom.ObserveSignup(string(req.Role), "submitted")
	w.deps.Log.InfoContext(ctx, "signup_submitted",
		"request_id", req.ID,
		"role", req.Role,
		"department", req.Department,
		"warnings", len(warnings),
	)

	return SubmitResult{Request: req, Warnings: warnings}, nil
}

func (w *Workflow) commit(ctx context.Context, app signup.Application) (signup.Request, error) {
	if err := utils.Wait(ctx, w.deps.Latency); err != nil {
		return signup.Request{}, err
	}

	req := signup.NewFromApplication(app, w.deps.Now())

	if err := w.deps.Store.AppendSignupRequest(ctx, req); err != nil {
		return signup.Request{}, fmt.Errorf("store signup request: %w", err)
	}
	return req, nil
}

// Cancel throws away everything typed so far. Nothing has been persisted
// before Submit, so there is nothing to undo.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmissionInFlight
	}
	w.resetLocked()
	return nil
}

func (w *Workflow) resetLocked() {
	w.state = StateIdentity
	w.identity = Identity{}
	w.contact = Contact{}
	w.academic = Academic{}
	w.phoneErr = nil
	w.submitting = false
}

type Snapshot struct {
	Step       State    `json:"step"`
	Stage      string   `json:"stage"`
	Identity   Identity `json:"identity"`
	Contact    Contact  `json:"contact"`
	Academic   Academic `json:"academic"`
	PhoneError string   `json:"phoneError,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	CanAdvance bool     `json:"canAdvance"`
	CanSubmit  bool     `json:"canSubmit"`
	Submitting bool     `json:"submitting"`
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Step:       w.state,
		Stage:      w.state.String(),
		Identity:   w.identity,
		Contact:    w.contact,
		Academic:   w.academic,
		Submitting: w.submitting,
	}
	if w.phoneErr != nil {
		s.PhoneError = w.phoneErr.Error()
	}

	s.Missing = w.guardLocked(w.state)
	ready := len(s.Missing) == 0 && !w.submitting

	if w.state == StateAcademic {
		s.CanSubmit = ready &&
			len(checkIdentity(w.identity)) == 0 &&
			len(checkContact(w.deps.Rule, w.contact)) == 0
	} else {
		s.CanAdvance = ready
	}
	return s
}
