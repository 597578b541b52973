package model

import (
	"time"
)

// Intent is the coarse category a turn is routed to.
type Intent string

const (
	IntentKnowledgeQuery  Intent = "knowledge_query"
	IntentScheduleMeeting Intent = "schedule_meeting"
	IntentSendEmail       Intent = "send_email"
	IntentTaskManagement  Intent = "task_management"
	IntentWebSearch       Intent = "web_search"
	IntentGeneralChat     Intent = "general_chat"
)

// KnownIntents is the closed set accepted from the classifier.
var KnownIntents = map[Intent]bool{
	IntentKnowledgeQuery:  true,
	IntentScheduleMeeting: true,
	IntentSendEmail:       true,
	IntentTaskManagement:  true,
	IntentWebSearch:       true,
	IntentGeneralChat:     true,
}

// ConflictPhase is the explicit state tag of the calendar conflict-resolution
// flow. It is stored alongside the payload fields so that invalid flag
// combinations are unrepresentable.
type ConflictPhase string

const (
	// PhaseNone means no conflict flow is in progress.
	PhaseNone ConflictPhase = ""
	// PhaseConflictDetected means the five-option menu was presented and the
	// next user message is expected to pick 1-5.
	PhaseConflictDetected ConflictPhase = "conflict_detected"
	// PhaseAwaitingRescheduleTime means the user was asked for a new time for
	// the existing conflicting event.
	PhaseAwaitingRescheduleTime ConflictPhase = "awaiting_reschedule_time"
	// PhaseAwaitingSlotChoice means alternative slots were offered and a
	// numeric choice is expected.
	PhaseAwaitingSlotChoice ConflictPhase = "awaiting_slot_choice"
)

// MeetingRequest is a structured meeting extracted from free text.
// StartTime is local ISO-8601 without offset (2006-01-02T15:04:05).
type MeetingRequest struct {
	Summary         string   `json:"summary"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees,omitempty"`
}

// CalendarEvent is an existing event as reported by the calendar backend.
type CalendarEvent struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// TimeSlot is a free interval offered as an alternative.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ThreadState is the unit of persistence, keyed by an opaque thread id
// (a WhatsApp contact or a web session).
type ThreadState struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`

	// Running condensation of messages older than the retained window.
	Summary string `json:"summary,omitempty"`

	// Monotonic proxies used only to decide when to compress.
	MessageCount int `json:"message_count"`
	TotalTokens  int `json:"total_tokens"`

	// Conflict-resolution flow. PendingMeeting is non-nil iff Phase != PhaseNone.
	Phase             ConflictPhase   `json:"phase,omitempty"`
	PendingMeeting    *MeetingRequest `json:"pending_meeting,omitempty"`
	ConflictingEvents []CalendarEvent `json:"conflicting_events,omitempty"`
	SuggestedSlots    []TimeSlot      `json:"suggested_slots,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Transient per-turn fields, overwritten each turn.
	Intent   Intent `json:"-"`
	Response string `json:"-"`
}

// NewThreadState returns an empty state for a thread id.
func NewThreadState(threadID string) *ThreadState {
	return &ThreadState{ThreadID: threadID}
}

// Append adds a message to the history and bumps the turn counter.
func (s *ThreadState) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.MessageCount++
}

// LastMessage returns the content of the most recent message, or "".
func (s *ThreadState) LastMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}

// InConflictFlow reports whether the thread is inside the conflict-resolution
// flow in any of its phases.
func (s *ThreadState) InConflictFlow() bool {
	return s.Phase != PhaseNone
}

// ClearConflictFlow resets every conflict-flow field back to the idle state.
func (s *ThreadState) ClearConflictFlow() {
	s.Phase = PhaseNone
	s.PendingMeeting = nil
	s.ConflictingEvents = nil
	s.SuggestedSlots = nil
}
