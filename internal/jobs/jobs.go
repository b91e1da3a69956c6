package jobs

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

// a Job is the core representation of a unit of asynchronous work.
type Job struct {
	ID          string    `json:"id"`
	Type        JobType   `json:"type"`
	Payload     []byte    `json:"payload"` // raw json
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	RunAt       time.Time `json:"runAt"`
	LastError   *string   `json:"lastError,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewJob creates a pending job with defaults.
func NewJob(t JobType, payloadJSON []byte, runAt time.Time) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}
	if len(payloadJSON) == 0 {
		return Job{}, ErrInvalidJobPayload
	}

	now := time.Now().UTC()

	if runAt.IsZero() {
		runAt = now
	}

	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		Status:      JobPending,
		MaxAttempts: DefaultMaxAttempts,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Build encodes and validates payload, then wraps it in a pending job.
func Build(t JobType, payload any) (Job, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return Job{}, err
	}

	b, err := EncodePayload(t, payload)
	if err != nil {
		return Job{}, err
	}

	return NewJob(t, b, time.Time{})
}

// Exhausted reports whether another attempt is allowed.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// Release returns an interrupted attempt to the queue without counting it.
func (j *Job) Release() {
	if j.Attempts > 0 {
		j.Attempts--
	}
	j.Status = JobPending
	j.UpdatedAt = time.Now().UTC()
}

// Fail records a failed attempt and schedules the next run.
func (j *Job) Fail(err error, next time.Time) {
	msg := err.Error()
	j.LastError = &msg
	j.UpdatedAt = time.Now().UTC()

	if j.Exhausted() {
		j.Status = JobDead
		return
	}

	j.Status = JobFailed
	j.RunAt = next
}
