package registration

import (
	"context"
	"fmt"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/jobs"
	"github.com/geocoder89/campuserp/internal/notifications"
)

const confirmationSubject = "Signup request received"

func confirmationBody(r signup.Request) string {
	return fmt.Sprintf(
		"Hello %s,\n\nWe received your %s signup request for the %s department (reference %s).\n"+
			"An administrator will review it and send your login credentials once it is approved.\n",
		r.FirstName, r.Role, r.Department, r.ID,
	)
}

func adminEvent(r signup.Request) notifications.AdminEvent {
	return notifications.AdminEvent{
		Kind:       notifications.EventSignupSubmitted,
		RequestID:  r.ID,
		Name:       r.FullName(),
		Email:      r.Email,
		Role:       string(r.Role),
		Department: r.Department,
		OccurredAt: r.SubmittedAt,
	}
}

// notify never fails the submission. Each failed message becomes a warning
// and, when a retry queue is wired, a job for the worker.
func (w *Workflow) notify(ctx context.Context, r signup.Request) []string {
	var warnings []string

	email := jobs.SendEmailPayload{
		To:        r.Email,
		Subject:   confirmationSubject,
		Body:      confirmationBody(r),
		RequestID: r.ID,
	}
	if err := w.deps.Notifier.SendEmail(ctx, email.To, email.Subject, email.Body); err != nil {
		warnings = append(warnings, w.deferNotification(ctx, "email", r.ID, err, jobs.JobSendEmail, email,
			"confirmation email could not be sent"))
	} else {
		w.deps.Prom.ObserveNotification("email", "sent")
	}

	alert := jobs.NotifyAdminsPayload{Event: adminEvent(r), RequestID: r.ID}
	if err := w.deps.Notifier.NotifyAdmins(ctx, alert.Event); err != nil {
		warnings = append(warnings, w.deferNotification(ctx, "admins", r.ID, err, jobs.JobNotifyAdmins, alert,
			"administrators could not be alerted"))
	} else {
		w.deps.Prom.ObserveNotification("admins", "sent")
	}

	return warnings
}

func (w *Workflow) deferNotification(ctx context.Context, channel, requestID string, cause error, t jobs.JobType, payload any, msg string) string {
	w.deps.Prom.ObserveNotification(channel, "failed")
	w.deps.Log.WarnContext(ctx, "notification_failed", "channel", channel, "request_id", requestID, "err", cause)

	if w.deps.Retry == nil {
		return msg
	}

	j, err := jobs.Build(t, payload)
	if err == nil {
		err = w.deps.Retry.Enqueue(ctx, j)
	}
	if err != nil {
		w.deps.Log.ErrorContext(ctx, "notification retry enqueue failed", "channel", channel, "request_id", requestID, "err", err)
		return msg
	}

	w.deps.Prom.ObserveNotification(channel, "queued")
	w.deps.Log.InfoContext(ctx, "notification_retry_enqueued", "channel", channel, "request_id", requestID, "job_id", j.ID)
	return msg + "; it will be retried"
}
