package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/jobs"
	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/phone"
	qmemory "github.com/geocoder89/campuserp/internal/queue/memory"
	"github.com/geocoder89/campuserp/internal/repo/memory"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	mu       sync.Mutex
	appendFn func(ctx context.Context, r signup.Request) error
	calls    int
}

func (f *fakeAppender) AppendSignupRequest(ctx context.Context, r signup.Request) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.appendFn != nil {
		return f.appendFn(ctx, r)
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	emailErr error
	adminErr error
	emails   []string
	events   []notifications.AdminEvent
}

func (f *fakeNotifier) SendEmail(ctx context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, to)
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.emailErr
}

func (f *fakeNotifier) NotifyAdmins(ctx context.Context, e notifications.AdminEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.adminErr
}

func (f *fakeNotifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emails) + len(f.events)
}

var fixedNow = time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)

func newWorkflow(st RequestAppender, n notifications.Notifier) *Workflow {
	return New(Deps{
		Store:    st,
		Notifier: n,
		Rule:     phone.India("91"),
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	})
}

func studentIdentity() Identity {
	return Identity{Role: user.RoleStudent, FirstName: "Asha", LastName: "Rao", Email: "asha@example.edu"}
}

func studentAcademic() Academic {
	return Academic{Department: "Computer Science", RollNumber: "CS-2026-014", TermsAccepted: true}
}

// fill walks a workflow to the academic step with valid data.
func fill(t *testing.T, w *Workflow) {
	t.Helper()

	require.NoError(t, w.SetIdentity(studentIdentity()))
	_, err := w.Next()
	require.NoError(t, err)

	require.NoError(t, w.SetContact(Contact{Phone: "98765 43210"}))
	_, err = w.Next()
	require.NoError(t, err)

	require.NoError(t, w.SetAcademic(studentAcademic()))
	require.Equal(t, StateAcademic, w.State())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from State
		act  Action
		to   State
		ok   bool
	}{
		{StateIdentity, ActionNext, StateContact, true},
		{StateIdentity, ActionBack, 0, false},
		{StateIdentity, ActionSubmit, 0, false},
		{StateContact, ActionNext, StateAcademic, true},
		{StateContact, ActionBack, StateIdentity, true},
		{StateContact, ActionSubmit, 0, false},
		{StateAcademic, ActionNext, 0, false},
		{StateAcademic, ActionBack, StateContact, true},
		{StateAcademic, ActionSubmit, StateIdentity, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_"+string(tt.act), func(t *testing.T) {
			to, ok := nextState(tt.from, tt.act)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.to, to)
			}
		})
	}
}

func TestNext_IdentityGuard(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})

	require.NoError(t, w.SetIdentity(Identity{Role: user.RoleStudent, FirstName: "Asha"}))

	state, err := w.Next()
	require.ErrorIs(t, err, ErrValidationIncomplete)
	assert.Equal(t, StateIdentity, state)

	var inc *IncompleteError
	require.True(t, errors.As(err, &inc))
	assert.ElementsMatch(t, []string{"lastName", "email"}, inc.Missing)
}

func TestNext_RejectsAdminRole(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})

	id := studentIdentity()
	id.Role = user.RoleAdmin
	require.NoError(t, w.SetIdentity(id))

	_, err := w.Next()
	require.ErrorIs(t, err, ErrValidationIncomplete)
}

func TestBack_GuardedAtFirstStep(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})

	state, err := w.Back()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdentity, state)
}

func TestContact_InvalidPhoneKeptButBlocks(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})
	require.NoError(t, w.SetIdentity(studentIdentity()))
	_, err := w.Next()
	require.NoError(t, err)

	err = w.SetContact(Contact{Phone: "12345"})
	require.ErrorIs(t, err, phone.ErrInvalidPhoneFormat)

	snap := w.Snapshot()
	assert.Equal(t, "12345", snap.Contact.Phone)
	assert.NotEmpty(t, snap.PhoneError)
	assert.False(t, snap.CanAdvance)

	_, err = w.Next()
	require.ErrorIs(t, err, ErrValidationIncomplete)
	assert.Equal(t, StateContact, w.State())
}

func TestContact_EmptyPhoneNoErrorButBlocks(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})
	require.NoError(t, w.SetIdentity(studentIdentity()))
	_, err := w.Next()
	require.NoError(t, err)

	require.NoError(t, w.SetContact(Contact{Phone: ""}))
	assert.Empty(t, w.Snapshot().PhoneError)

	_, err = w.Next()
	require.ErrorIs(t, err, ErrValidationIncomplete)
}

func TestSubmit_InvalidAttemptsHaveNoSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, w *Workflow)
		want  error
	}{
		{
			name:  "from identity",
			setup: func(t *testing.T, w *Workflow) { require.NoError(t, w.SetIdentity(studentIdentity())) },
			want:  ErrInvalidTransition,
		},
		{
			name: "from contact",
			setup: func(t *testing.T, w *Workflow) {
				require.NoError(t, w.SetIdentity(studentIdentity()))
				_, err := w.Next()
				require.NoError(t, err)
			},
			want: ErrInvalidTransition,
		},
		{
			name: "terms not accepted",
			setup: func(t *testing.T, w *Workflow) {
				fill(t, w)
				a := studentAcademic()
				a.TermsAccepted = false
				require.NoError(t, w.SetAcademic(a))
			},
			want: ErrValidationIncomplete,
		},
		{
			name: "unknown department",
			setup: func(t *testing.T, w *Workflow) {
				fill(t, w)
				a := studentAcademic()
				a.Department = "Astrology"
				require.NoError(t, w.SetAcademic(a))
			},
			want: ErrValidationIncomplete,
		},
		{
			name: "missing roll number",
			setup: func(t *testing.T, w *Workflow) {
				fill(t, w)
				a := studentAcademic()
				a.RollNumber = ""
				a.EmployeeID = "E-1"
				require.NoError(t, w.SetAcademic(a))
			},
			want: ErrValidationIncomplete,
		},
		{
			name: "phone broken after step two",
			setup: func(t *testing.T, w *Workflow) {
				fill(t, w)
				_ = w.SetContact(Contact{Phone: "1234567890"})
			},
			want: ErrValidationIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeAppender{}
			n := &fakeNotifier{}
			w := newWorkflow(st, n)
			tt.setup(t, w)
			before := w.State()

			_, err := w.Submit(context.Background())
			require.ErrorIs(t, err, tt.want)

			assert.Zero(t, st.calls, "store must not be called")
			assert.Zero(t, n.calls(), "notifier must not be called")
			assert.Equal(t, before, w.State())
		})
	}
}

func TestSubmit_RoundTripThroughStore(t *testing.T) {
	st := memory.NewStore()
	n := &fakeNotifier{}
	w := newWorkflow(st, n)
	fill(t, w)

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	got, err := st.GetSignupRequest(context.Background(), res.Request.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, signup.StatusPendingApproval, got.Status)
	assert.Equal(t, "+91-98765-43210", got.Phone)
	assert.Equal(t, "CS-2026-014", got.RollNumber)
	assert.Empty(t, got.EmployeeID)
	assert.True(t, got.SubmittedAt.Equal(fixedNow))

	list, _, err := st.ListSignupRequests(context.Background(), store.SignupFilter{}, store.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, []string{"asha@example.edu"}, n.emails)
	require.Len(t, n.events, 1)
	assert.Equal(t, got.ID, n.events[0].RequestID)

	// form is reset for the next applicant
	snap := w.Snapshot()
	assert.Equal(t, StateIdentity, snap.Step)
	assert.Equal(t, Identity{}, snap.Identity)
	assert.Equal(t, Contact{}, snap.Contact)
}

func TestSubmit_StorageFailureAborts(t *testing.T) {
	boom := errors.New("disk full")
	st := &fakeAppender{appendFn: func(context.Context, signup.Request) error { return boom }}
	n := &fakeNotifier{}
	w := newWorkflow(st, n)
	fill(t, w)

	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Zero(t, n.calls())
	assert.Equal(t, StateAcademic, w.State())
	assert.Equal(t, "Asha", w.Snapshot().Identity.FirstName)
}

func TestSubmit_NotificationFailureIsWarningAndQueued(t *testing.T) {
	st := memory.NewStore()
	n := &fakeNotifier{emailErr: errors.New("smtp down"), adminErr: errors.New("pager down")}
	q := qmemory.New()

	w := newWorkflow(st, n)
	w.deps.Retry = q
	fill(t, w)

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "retried")

	_, err = st.GetSignupRequest(context.Background(), res.Request.ID)
	require.NoError(t, err, "request stays recorded")

	pending, _ := q.Len(context.Background())
	assert.Equal(t, 2, pending)

	first, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobs.JobSendEmail, first.Type)
}

func TestSubmit_CallerGoneAfterStoreStillNotifies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the caller disconnects right after the request is recorded
	st := &fakeAppender{appendFn: func(context.Context, signup.Request) error {
		cancel()
		return nil
	}}
	n := &fakeNotifier{adminErr: errors.New("pager down")}
	q := qmemory.New()

	w := newWorkflow(st, n)
	w.deps.Retry = q
	fill(t, w)

	res, err := w.Submit(ctx)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Equal(t, []string{"asha@example.edu"}, n.emails, "confirmation still sent")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "retried")

	pending, _ := q.Len(context.Background())
	assert.Equal(t, 1, pending, "failed admin alert is queued for the worker")

	j, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobs.JobNotifyAdmins, j.Type)
}

func TestSubmit_NotificationFailureWithoutQueue(t *testing.T) {
	n := &fakeNotifier{adminErr: errors.New("pager down")}
	w := newWorkflow(&fakeAppender{}, n)
	fill(t, w)

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.NotContains(t, res.Warnings[0], "retried")
}

func TestSubmit_LatencyIsCancelable(t *testing.T) {
	st := &fakeAppender{}
	w := newWorkflow(st, &fakeNotifier{})
	w.deps.Latency = time.Hour
	fill(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Submit(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, st.calls)
	assert.False(t, w.Snapshot().Submitting)
}

func TestSubmit_SecondSubmitWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	st := &fakeAppender{appendFn: func(context.Context, signup.Request) error {
		close(entered)
		<-release
		return nil
	}}
	w := newWorkflow(st, &fakeNotifier{})
	fill(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()

	<-entered
	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	require.ErrorIs(t, w.Cancel(), ErrSubmissionInFlight)
	require.ErrorIs(t, w.SetAcademic(Academic{}), ErrSubmissionInFlight)
	assert.True(t, w.Snapshot().Submitting)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, st.calls)
}

func TestCancel_DiscardsForm(t *testing.T) {
	st := &fakeAppender{}
	n := &fakeNotifier{}
	w := newWorkflow(st, n)
	fill(t, w)

	require.NoError(t, w.Cancel())

	snap := w.Snapshot()
	assert.Equal(t, StateIdentity, snap.Step)
	assert.Equal(t, Academic{}, snap.Academic)
	assert.Zero(t, st.calls)
	assert.Zero(t, n.calls())
}

func TestFacultyKeepsEmployeeID(t *testing.T) {
	st := memory.NewStore()
	w := newWorkflow(st, &fakeNotifier{})

	require.NoError(t, w.SetIdentity(Identity{Role: "Faculty", FirstName: "Ravi", LastName: "Iyer", Email: "ravi@example.edu"}))
	_, err := w.Next()
	require.NoError(t, err)
	require.NoError(t, w.SetContact(Contact{Phone: "011-2345-6789"}))
	_, err = w.Next()
	require.NoError(t, err)
	require.NoError(t, w.SetAcademic(Academic{Department: "Physics", EmployeeID: "EMP-77", RollNumber: "ignored", TermsAccepted: true}))

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.RoleFaculty, res.Request.Role)
	assert.Equal(t, "EMP-77", res.Request.EmployeeID)
	assert.Empty(t, res.Request.RollNumber)
	// landlines are stored as typed
	assert.Equal(t, "011-2345-6789", res.Request.Phone)
}

func TestSnapshot_Flags(t *testing.T) {
	w := newWorkflow(&fakeAppender{}, &fakeNotifier{})
	assert.False(t, w.Snapshot().CanAdvance)

	require.NoError(t, w.SetIdentity(studentIdentity()))
	assert.True(t, w.Snapshot().CanAdvance)

	w2 := newWorkflow(&fakeAppender{}, &fakeNotifier{})
	fill(t, w2)
	snap := w2.Snapshot()
	assert.True(t, snap.CanSubmit)
	assert.False(t, snap.CanAdvance)
	assert.Equal(t, "academic", snap.Stage)
}

func TestValidate_DepartmentRuleRegistered(t *testing.T) {
	v := newValidate()

	require.NoError(t, v.Var("Physics", "department"))
	require.Error(t, v.Var("Astrology", "department"))
}
