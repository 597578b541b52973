package model

import (
	"time"
)

// TurnEvent is the audit record published after each completed turn.
type TurnEvent struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Intent    Intent    `json:"intent"`
	Phase     string    `json:"phase,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	OK        bool      `json:"ok"`
	CreatedAt time.Time `json:"created_at"`
}
