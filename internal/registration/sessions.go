package registration

import (
	"time"

	"github.com/geocoder89/campuserp/internal/cache"
	"github.com/google/uuid"
)

// Sessions keeps one workflow per applicant. Idle sessions expire after ttl
// and take their unsaved form data with them.
type Sessions struct {
	deps  Deps
	store *cache.Cache[*Workflow]
}

func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	return &Sessions{deps: deps, store: cache.New[*Workflow](ttl)}
}

func (s *Sessions) Start() (string, *Workflow) {
	id := uuid.NewString()
	w := New(s.deps)
	s.store.Set(id, w)
	return id, w
}

// Get returns the workflow and extends its lifetime.
func (s *Sessions) Get(id string) (*Workflow, error) {
	w, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.store.Set(id, w)
	return w, nil
}

// Discard cancels the workflow and forgets the session.
func (s *Sessions) Discard(id string) error {
	w, ok := s.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	if err := w.Cancel(); err != nil {
		return err
	}
	s.store.Delete(id)
	return nil
}

func (s *Sessions) Sweep() int {
	return s.store.Sweep()
}

func (s *Sessions) Len() int {
	return s.store.Len()
}
