// Package model defines data structures for the assistant platform.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single entry in a thread's conversation history.
// Messages are append-only; order within a thread is semantically significant.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Summary marks the synthetic message produced by history compression.
	// It carries background context, not a literal user/assistant turn.
	Summary bool `json:"summary,omitempty"`
}

// ChatRequest is the inbound payload for a chat turn.
type ChatRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// ChatResponse is the reply for a chat turn.
type ChatResponse struct {
	ThreadID string `json:"thread_id"`
	Response string `json:"response"`
}

// WhatsAppInbound is the payload delivered by the WhatsApp bridge.
type WhatsAppInbound struct {
	From string `json:"from"`
	Body string `json:"body"`
}
