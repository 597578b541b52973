package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	require.NoError(t, decodeJSON(`{"name":"x"}`, &p))
	assert.Equal(t, "x", p.Name)

	// Prose and fences around the object are tolerated.
	p = payload{}
	require.NoError(t, decodeJSON("Aqui está:\n```json\n{\"name\":\"y\"}\n```", &p))
	assert.Equal(t, "y", p.Name)

	err := decodeJSON("nenhum objeto aqui", &p)
	assert.ErrorIs(t, err, ErrNoJSON)

	err = decodeJSON("{invalid}", &p)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseLocalTime(t *testing.T) {
	got, err := parseLocalTime("2026-02-03T18:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 3, 18, 0, 0, 0, time.Local), got)

	// ISO prefix embedded in a longer string (backend appended an offset).
	got, err = parseLocalTime("2026-02-03T18:00:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, 18, got.Hour())

	// Lenient formats go through dateparse.
	_, err = parseLocalTime("2026-02-03 18:00")
	require.NoError(t, err)

	_, err = parseLocalTime("não é uma data")
	assert.ErrorIs(t, err, ErrBadTimestamp)
}

func TestEventDurationMinutes(t *testing.T) {
	ev := calendarEvent("e1", "Daily", "2026-02-03T18:00:00", "2026-02-03T18:45:00")
	assert.Equal(t, 45, eventDurationMinutes(ev))

	// Unparsable times fall back to an hour.
	ev.End = "???"
	assert.Equal(t, 60, eventDurationMinutes(ev))

	// End before start is treated as unusable.
	ev = calendarEvent("e1", "Daily", "2026-02-03T18:00:00", "2026-02-03T17:00:00")
	assert.Equal(t, 60, eventDurationMinutes(ev))
}
