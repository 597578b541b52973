package agent

import (
	"context"
	"errors"
	"time"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
)

// fakeLLM scripts completions per call: each Complete pops the next reply.
// A respond function can inspect the request instead.
type fakeLLM struct {
	replies []string
	respond func(req *llm.CompletionRequest) (string, error)
	err     error
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.respond != nil {
		content, err := f.respond(req)
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Content: content}, nil
	}
	if len(f.replies) == 0 {
		return &llm.CompletionResponse{Content: ""}, nil
	}
	content := f.replies[0]
	f.replies = f.replies[1:]
	return &llm.CompletionResponse{Content: content}, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

// fakeCalendar is a Calendar with function fields; unset operations fail.
type fakeCalendar struct {
	checkConflicts func(start, end time.Time) (*capability.ConflictCheck, error)
	schedule       func(req model.MeetingRequest) (*capability.ScheduleResult, error)
	cancel         func(eventID string) error
	update         func(eventID string, newStart time.Time, durationMinutes int) (*capability.ScheduleResult, error)
	findSlots      func(date time.Time, durationMinutes, count int) ([]model.TimeSlot, error)
	listUpcoming   func(maxResults, daysAhead int) ([]model.CalendarEvent, error)
}

var errNotScripted = errors.New("not scripted")

func (f *fakeCalendar) CheckConflicts(ctx context.Context, start, end time.Time) (*capability.ConflictCheck, error) {
	if f.checkConflicts == nil {
		return nil, errNotScripted
	}
	return f.checkConflicts(start, end)
}

func (f *fakeCalendar) Schedule(ctx context.Context, req model.MeetingRequest) (*capability.ScheduleResult, error) {
	if f.schedule == nil {
		return nil, errNotScripted
	}
	return f.schedule(req)
}

func (f *fakeCalendar) Cancel(ctx context.Context, eventID string) error {
	if f.cancel == nil {
		return errNotScripted
	}
	return f.cancel(eventID)
}

func (f *fakeCalendar) Update(ctx context.Context, eventID string, newStart time.Time, durationMinutes int) (*capability.ScheduleResult, error) {
	if f.update == nil {
		return nil, errNotScripted
	}
	return f.update(eventID, newStart, durationMinutes)
}

func (f *fakeCalendar) FindAvailableSlots(ctx context.Context, date time.Time, durationMinutes, count int) ([]model.TimeSlot, error) {
	if f.findSlots == nil {
		return nil, errNotScripted
	}
	return f.findSlots(date, durationMinutes, count)
}

func (f *fakeCalendar) ListUpcoming(ctx context.Context, maxResults, daysAhead int) ([]model.CalendarEvent, error) {
	if f.listUpcoming == nil {
		return nil, errNotScripted
	}
	return f.listUpcoming(maxResults, daysAhead)
}

func calendarEvent(id, summary, start, end string) model.CalendarEvent {
	return model.CalendarEvent{ID: id, Summary: summary, Start: start, End: end}
}

// threadWithUserMessage builds a thread whose last message is the given text.
func threadWithUserMessage(text string) *model.ThreadState {
	st := model.NewThreadState("t-1")
	st.Append(model.Message{ID: "m-1", Role: model.RoleUser, Content: text, CreatedAt: time.Now()})
	return st
}
