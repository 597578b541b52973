package capability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

// localTimeLayout is local ISO-8601 without offset.
const localTimeLayout = "2006-01-02T15:04:05"

// LocalCalendar is an in-process Calendar for development and tests. Events
// live in memory; overlap detection matches a production backend's contract.
type LocalCalendar struct {
	mu     sync.Mutex
	events map[string]model.CalendarEvent

	// now is injectable so date-relative queries are testable.
	now func() time.Time
}

// NewLocalCalendar creates an empty in-memory calendar.
func NewLocalCalendar() *LocalCalendar {
	return &LocalCalendar{events: make(map[string]model.CalendarEvent), now: time.Now}
}

func parseEventTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(localTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return dateparse.ParseLocal(s)
}

// CheckConflicts returns the events overlapping [start, end).
func (c *LocalCalendar) CheckConflicts(ctx context.Context, start, end time.Time) (*ConflictCheck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var conflicts []model.CalendarEvent
	for _, ev := range c.events {
		evStart, err := parseEventTime(ev.Start)
		if err != nil {
			continue
		}
		evEnd, err := parseEventTime(ev.End)
		if err != nil {
			continue
		}
		if evStart.Before(end) && start.Before(evEnd) {
			conflicts = append(conflicts, ev)
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Start < conflicts[j].Start })

	return &ConflictCheck{HasConflict: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// Schedule creates a new event from a meeting request.
func (c *LocalCalendar) Schedule(ctx context.Context, req model.MeetingRequest) (*ScheduleResult, error) {
	start, err := parseEventTime(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", req.StartTime, err)
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 60
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New().String()
	c.events[id] = model.CalendarEvent{
		ID:      id,
		Summary: req.Summary,
		Start:   start.Format(localTimeLayout),
		End:     start.Add(time.Duration(duration) * time.Minute).Format(localTimeLayout),
	}
	return &ScheduleResult{EventID: id, Link: "local://event/" + id}, nil
}

// Cancel removes an event.
func (c *LocalCalendar) Cancel(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[eventID]; !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	delete(c.events, eventID)
	return nil
}

// Update moves an event to a new start, keeping its id.
func (c *LocalCalendar) Update(ctx context.Context, eventID string, newStart time.Time, durationMinutes int) (*ScheduleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	ev.Start = newStart.Format(localTimeLayout)
	ev.End = newStart.Add(time.Duration(durationMinutes) * time.Minute).Format(localTimeLayout)
	c.events[eventID] = ev
	return &ScheduleResult{EventID: eventID, Link: "local://event/" + eventID}, nil
}

// FindAvailableSlots scans the given date hourly and returns up to count free
// slots of the requested duration. Hours already gone are never offered, so
// asking for today only yields slots still ahead.
func (c *LocalCalendar) FindAvailableSlots(ctx context.Context, date time.Time, durationMinutes, count int) ([]model.TimeSlot, error) {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	if count <= 0 {
		count = 3
	}

	now := c.now()
	var slots []model.TimeSlot
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	for hour := 8; hour < 22 && len(slots) < count; hour++ {
		start := day.Add(time.Duration(hour) * time.Hour)
		if !start.After(now) {
			continue
		}
		end := start.Add(time.Duration(durationMinutes) * time.Minute)
		check, err := c.CheckConflicts(ctx, start, end)
		if err != nil {
			return nil, err
		}
		if !check.HasConflict {
			slots = append(slots, model.TimeSlot{
				Start: start.Format(localTimeLayout),
				End:   end.Format(localTimeLayout),
			})
		}
	}
	return slots, nil
}

// ListUpcoming returns events starting within daysAhead days, soonest first.
func (c *LocalCalendar) ListUpcoming(ctx context.Context, maxResults, daysAhead int) ([]model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	horizon := now.AddDate(0, 0, daysAhead)

	var upcoming []model.CalendarEvent
	for _, ev := range c.events {
		start, err := parseEventTime(ev.Start)
		if err != nil {
			continue
		}
		if start.After(now) && start.Before(horizon) {
			upcoming = append(upcoming, ev)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Start < upcoming[j].Start })
	if maxResults > 0 && len(upcoming) > maxResults {
		upcoming = upcoming[:maxResults]
	}
	return upcoming, nil
}

// LocalTasks is an in-process Tasks backend.
type LocalTasks struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]Task
}

// NewLocalTasks creates an empty in-memory task store.
func NewLocalTasks() *LocalTasks {
	return &LocalTasks{nextID: 1, tasks: make(map[int]Task)}
}

// Create stores a new pending task.
func (t *LocalTasks) Create(ctx context.Context, title, description, priority, deadline string) (*Task, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if priority == "" {
		priority = "medium"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	task := Task{
		ID:          t.nextID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      "pending",
		Deadline:    deadline,
	}
	t.tasks[task.ID] = task
	t.nextID++
	return &task, nil
}

// List returns tasks matching the filter, ordered by id.
func (t *LocalTasks) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Task
	for _, task := range t.tasks {
		if filter.Status != "" && filter.Status != "all" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Complete marks a task completed.
func (t *LocalTasks) Complete(ctx context.Context, id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return fmt.Errorf("task %d not found", id)
	}
	task.Status = "completed"
	t.tasks[id] = task
	return nil
}

// Delete removes a task.
func (t *LocalTasks) Delete(ctx context.Context, id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tasks[id]; !ok {
		return fmt.Errorf("task %d not found", id)
	}
	delete(t.tasks, id)
	return nil
}

// UpcomingDeadlines returns pending tasks whose deadline falls within the
// next days days, soonest first.
func (t *LocalTasks) UpcomingDeadlines(ctx context.Context, days int) ([]Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	horizon := now.AddDate(0, 0, days)

	var out []Task
	for _, task := range t.tasks {
		if task.Status != "pending" || task.Deadline == "" {
			continue
		}
		due, err := dateparse.ParseLocal(task.Deadline)
		if err != nil {
			continue
		}
		if due.After(now) && due.Before(horizon) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline < out[j].Deadline })
	return out, nil
}

// LocalEmail is an in-process Email backend. Sends are recorded in an
// outbox; the inbox can be pre-seeded for development.
type LocalEmail struct {
	mu     sync.Mutex
	Outbox []EmailMessage
	Inbox  []EmailMessage
}

// NewLocalEmail creates an empty in-memory mailbox.
func NewLocalEmail() *LocalEmail {
	return &LocalEmail{}
}

// Send records the message in the outbox.
func (e *LocalEmail) Send(ctx context.Context, to, subject, body string, cc, bcc []string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Outbox = append(e.Outbox, EmailMessage{
		From:    to,
		Subject: subject,
		Date:    time.Now().Format(time.RFC1123),
		Body:    body,
	})
	return nil
}

// Read returns up to maxEmails inbox messages, newest first.
func (e *LocalEmail) Read(ctx context.Context, maxEmails int, unreadOnly bool) ([]EmailMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]EmailMessage, len(e.Inbox))
	copy(out, e.Inbox)
	if maxEmails > 0 && len(out) > maxEmails {
		out = out[:maxEmails]
	}
	return out, nil
}

// Search filters the inbox by substring match on subject and body.
func (e *LocalEmail) Search(ctx context.Context, query string, maxEmails int) ([]EmailMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lower := strings.ToLower(query)
	var out []EmailMessage
	for _, msg := range e.Inbox {
		if strings.Contains(strings.ToLower(msg.Subject), lower) ||
			strings.Contains(strings.ToLower(msg.Body), lower) {
			out = append(out, msg)
		}
		if maxEmails > 0 && len(out) >= maxEmails {
			break
		}
	}
	return out, nil
}

// NoopWebSearch is a WebSearch that always comes back empty. It stands in
// when no search provider is configured; callers already handle zero results.
type NoopWebSearch struct{}

// Search returns no results.
func (NoopWebSearch) Search(ctx context.Context, query string, k int) ([]WebResult, error) {
	return nil, nil
}

// SearchNews returns no results.
func (NoopWebSearch) SearchNews(ctx context.Context, query string, k int) ([]WebResult, error) {
	return nil, nil
}

// LocalDocuments is an in-process DocumentSearch over a fixed set of text
// chunks, ranked by naive term overlap.
type LocalDocuments struct {
	mu     sync.RWMutex
	chunks []string
}

// NewLocalDocuments creates a document index over the given chunks.
func NewLocalDocuments(chunks []string) *LocalDocuments {
	return &LocalDocuments{chunks: chunks}
}

// Add indexes another chunk.
func (d *LocalDocuments) Add(chunk string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunks = append(d.chunks, chunk)
}

// Search returns the k chunks sharing the most terms with the query.
func (d *LocalDocuments) Search(ctx context.Context, query string, k int) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		chunk string
		score int
	}
	var matches []scored
	for _, chunk := range d.chunks {
		lower := strings.ToLower(chunk)
		score := 0
		for _, term := range terms {
			if len(term) > 2 && strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{chunk, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.chunk
	}
	return out, nil
}
