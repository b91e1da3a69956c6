package jobs

import "github.com/geocoder89/campuserp/internal/notifications"

// SendEmailPayload retries an applicant confirmation email.
type SendEmailPayload struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	RequestID string `json:"requestId,omitempty"` // correlation
}

// NotifyAdminsPayload retries an admin alert.
type NotifyAdminsPayload struct {
	Event     notifications.AdminEvent `json:"event"`
	RequestID string                   `json:"requestId,omitempty"`
}
