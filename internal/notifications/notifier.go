package notifications

import (
	"context"
	"time"
)

const EventSignupSubmitted = "signup_request.submitted"

// AdminEvent is an internal alert for administrators.
type AdminEvent struct {
	Kind       string    `json:"kind"`
	RequestID  string    `json:"requestId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	NotifyAdmins(ctx context.Context, event AdminEvent) error
}
