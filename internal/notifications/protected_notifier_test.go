package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	emailFn func(ctx context.Context, to, subject, body string) error
	calls   int
}

func (f *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	f.calls++
	if f.emailFn != nil {
		return f.emailFn(ctx, to, subject, body)
	}
	return nil
}

func (f *fakeNotifier) NotifyAdmins(ctx context.Context, event AdminEvent) error {
	f.calls++
	return nil
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeNotifier{emailFn: func(context.Context, string, string, string) error { return boom }}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := n.SendEmail(ctx, "a@example.edu", "s", "b"); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	if err := n.SendEmail(ctx, "a@example.edu", "s", "b"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit must not reach the provider, calls=%d", inner.calls)
	}
	if n.State() != string(stateOpen) {
		t.Fatalf("expected open state, got %s", n.State())
	}
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	fail := true
	inner := &fakeNotifier{emailFn: func(context.Context, string, string, string) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})
	n.now = func() time.Time { return now }
	ctx := context.Background()

	_ = n.SendEmail(ctx, "a", "s", "b")
	if n.State() != string(stateOpen) {
		t.Fatalf("expected open, got %s", n.State())
	}

	now = now.Add(2 * time.Minute)
	fail = false

	if err := n.SendEmail(ctx, "a", "s", "b"); err != nil {
		t.Fatalf("trial call should pass, got %v", err)
	}
	if n.State() != string(stateClosed) {
		t.Fatalf("expected closed after successful trial, got %s", n.State())
	}
}

func TestProtectedNotifier_Timeout(t *testing.T) {
	inner := &fakeNotifier{emailFn: func(ctx context.Context, _, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 10 * time.Millisecond})

	err := n.SendEmail(context.Background(), "a", "s", "b")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLogNotifier_SimulatedFailure(t *testing.T) {
	n := NewLogNotifier(nil, LogNotifierConfig{Fail: true})

	if err := n.NotifyAdmins(context.Background(), AdminEvent{Kind: EventSignupSubmitted}); !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}
