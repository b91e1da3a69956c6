package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions(Deps{Store: &fakeAppender{}, Notifier: &fakeNotifier{}}, time.Minute)

	id, w := s.Start()
	require.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, w, got)

	require.NoError(t, got.SetIdentity(studentIdentity()))
	require.NoError(t, s.Discard(id))

	_, err = s.Get(id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, s.Discard(id), ErrSessionNotFound)

	// the discarded workflow has no leftover data
	assert.Equal(t, Identity{}, w.Snapshot().Identity)
}

func TestSessions_AreIndependent(t *testing.T) {
	s := NewSessions(Deps{Store: &fakeAppender{}, Notifier: &fakeNotifier{}}, time.Minute)

	_, a := s.Start()
	_, b := s.Start()

	require.NoError(t, a.SetIdentity(studentIdentity()))
	assert.Equal(t, Identity{}, b.Snapshot().Identity)
	assert.Equal(t, 2, s.Len())
}
