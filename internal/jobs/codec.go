package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobSendEmail:
		switch payload.(type) {
		case SendEmailPayload, *SendEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case JobNotifyAdmins:
		switch payload.(type) {
		case NotifyAdminsPayload, *NotifyAdminsPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobSendEmail:
		var p SendEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobNotifyAdmins:
		var p NotifyAdminsPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// Marshal and Unmarshal are the queue wire format.
func Marshal(j Job) ([]byte, error) {
	return json.Marshal(j)
}

func Unmarshal(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	if !j.Type.IsValid() {
		return Job{}, ErrInvalidJobType
	}
	return j, nil
}
