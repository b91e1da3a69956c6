package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type SignupCursor struct {
	SubmittedAt time.Time `json:"submittedAt"`
	ID          string    `json:"id"`
}

func EncodeSignupCursor(submittedAt time.Time, id string) (string, error) {
	b, err := json.Marshal(SignupCursor{SubmittedAt: submittedAt.UTC(), ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeSignupCursor(cursor string) (SignupCursor, error) {
	if cursor == "" {
		return SignupCursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return SignupCursor{}, ErrInvalidCursor
	}

	var c SignupCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return SignupCursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.SubmittedAt.IsZero() {
		return SignupCursor{}, ErrInvalidCursor
	}
	return c, nil
}
