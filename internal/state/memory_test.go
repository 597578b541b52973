package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := model.NewThreadState("t-1")
	st.Append(model.Message{ID: "m-1", Role: model.RoleUser, Content: "oi"})
	st.Phase = model.PhaseConflictDetected
	st.PendingMeeting = &model.MeetingRequest{Summary: "Reunião", StartTime: "2026-02-03T18:00:00", DurationMinutes: 60}

	require.NoError(t, s.Save(ctx, st))

	got, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ThreadID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "oi", got.Messages[0].Content)
	assert.Equal(t, model.PhaseConflictDetected, got.Phase)
	require.NotNil(t, got.PendingMeeting)
	assert.Equal(t, "Reunião", got.PendingMeeting.Summary)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Loads return copies: mutating a loaded state does not leak back.
func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := model.NewThreadState("t-1")
	require.NoError(t, s.Save(ctx, st))

	first, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	first.Append(model.Message{ID: "m-x", Role: model.RoleUser, Content: "mutação local"})

	second, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, second.Messages)
}

// Transient per-turn fields never survive a round trip.
func TestMemoryStoreDropsTransientFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := model.NewThreadState("t-1")
	st.Intent = model.IntentScheduleMeeting
	st.Response = "resposta desta rodada"
	require.NoError(t, s.Save(ctx, st))

	got, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, got.Intent)
	assert.Empty(t, got.Response)
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, model.NewThreadState("t-1")))
	require.NoError(t, s.Clear(ctx, "t-1"))

	_, err := s.Load(ctx, "t-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing an unknown thread is not an error.
	assert.NoError(t, s.Clear(ctx, "missing"))
}
