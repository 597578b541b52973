// Package capability declares the external service contracts the assistant
// core consumes. Calendar, email, task, and search backends are external
// collaborators with their own consistency guarantees; every call may fail
// and no transactionality across two calls is assumed.
package capability

import (
	"context"
	"time"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

// ConflictCheck is the result of a calendar overlap query.
type ConflictCheck struct {
	HasConflict bool
	Conflicts   []model.CalendarEvent
}

// ScheduleResult is the result of creating or moving an event.
type ScheduleResult struct {
	EventID string
	Link    string
}

// Calendar is the scheduling backend.
type Calendar interface {
	CheckConflicts(ctx context.Context, start, end time.Time) (*ConflictCheck, error)
	Schedule(ctx context.Context, req model.MeetingRequest) (*ScheduleResult, error)
	Cancel(ctx context.Context, eventID string) error
	Update(ctx context.Context, eventID string, newStart time.Time, durationMinutes int) (*ScheduleResult, error)
	FindAvailableSlots(ctx context.Context, date time.Time, durationMinutes, count int) ([]model.TimeSlot, error)
	ListUpcoming(ctx context.Context, maxResults, daysAhead int) ([]model.CalendarEvent, error)
}

// EmailMessage is one message returned by read or search.
type EmailMessage struct {
	From    string
	Subject string
	Date    string
	Body    string
}

// Email is the mail backend.
type Email interface {
	Send(ctx context.Context, to, subject, body string, cc, bcc []string) error
	Read(ctx context.Context, maxEmails int, unreadOnly bool) ([]EmailMessage, error)
	Search(ctx context.Context, query string, maxEmails int) ([]EmailMessage, error)
}

// Task is a stored TODO item.
type Task struct {
	ID          int
	Title       string
	Description string
	Priority    string
	Status      string
	Deadline    string
}

// TaskFilter narrows task listing.
type TaskFilter struct {
	Status   string
	Priority string
}

// Tasks is the task-list backend.
type Tasks interface {
	Create(ctx context.Context, title, description, priority, deadline string) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]Task, error)
	Complete(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	UpcomingDeadlines(ctx context.Context, days int) ([]Task, error)
}

// DocumentSearch is the local knowledge-base index.
type DocumentSearch interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// WebResult is one web search hit.
type WebResult struct {
	Title   string
	Snippet string
	URL     string
	Source  string
	Date    string
}

// WebSearch is the internet search backend.
type WebSearch interface {
	Search(ctx context.Context, query string, k int) ([]WebResult, error)
	SearchNews(ctx context.Context, query string, k int) ([]WebResult, error)
}
