package jobs

import "strings"

// ValidatePayload performs minimal validation on payloads before they are queued.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := strings.TrimSpace

	switch t {
	case JobSendEmail:
		var p SendEmailPayload
		switch v := payload.(type) {
		case SendEmailPayload:
			p = v
		case *SendEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.To) == "" || trim(p.Subject) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobNotifyAdmins:
		var p NotifyAdminsPayload
		switch v := payload.(type) {
		case NotifyAdminsPayload:
			p = v
		case *NotifyAdminsPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.Event.Kind) == "" || trim(p.Event.RequestID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
