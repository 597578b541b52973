package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

func TestClassifyKnownIntents(t *testing.T) {
	tests := []struct {
		reply string
		want  model.Intent
	}{
		{"schedule_meeting", model.IntentScheduleMeeting},
		{"send_email", model.IntentSendEmail},
		{"task_management", model.IntentTaskManagement},
		{"knowledge_query", model.IntentKnowledgeQuery},
		{"web_search", model.IntentWebSearch},
		{"general_chat", model.IntentGeneralChat},
		{"  Schedule_Meeting \n", model.IntentScheduleMeeting},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			r := NewRouter(&fakeLLM{replies: []string{tt.reply}}, logger.NewNop())
			st := threadWithUserMessage("alguma mensagem")

			got := r.Classify(context.Background(), st)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, st.Intent)
		})
	}
}

func TestClassifyUnknownIntentFallsBackToChat(t *testing.T) {
	r := NewRouter(&fakeLLM{replies: []string{"make_coffee"}}, logger.NewNop())
	st := threadWithUserMessage("faz um café")

	assert.Equal(t, model.IntentGeneralChat, r.Classify(context.Background(), st))
}

func TestClassifyErrorFallsBackToChat(t *testing.T) {
	r := NewRouter(&fakeLLM{err: errors.New("provider down")}, logger.NewNop())
	st := threadWithUserMessage("oi")

	assert.Equal(t, model.IntentGeneralChat, r.Classify(context.Background(), st))
}

// While a scheduling conflict is unresolved the next message answers the
// menu, so routing bypasses the classifier entirely.
func TestClassifyMidFlowOverride(t *testing.T) {
	fake := &fakeLLM{replies: []string{"general_chat"}}
	r := NewRouter(fake, logger.NewNop())

	st := threadWithUserMessage("2")
	st.PendingMeeting = &model.MeetingRequest{Summary: "Reunião", StartTime: "2026-02-03T18:00:00", DurationMinutes: 60}
	st.Phase = model.PhaseConflictDetected

	assert.Equal(t, model.IntentScheduleMeeting, r.Classify(context.Background(), st))
	assert.Zero(t, fake.calls, "classifier must not be consulted mid-flow")
}

func TestClassifyAwaitingRescheduleTimeOverride(t *testing.T) {
	fake := &fakeLLM{replies: []string{"general_chat"}}
	r := NewRouter(fake, logger.NewNop())

	st := threadWithUserMessage("amanhã 16h")
	st.Phase = model.PhaseAwaitingRescheduleTime

	assert.Equal(t, model.IntentScheduleMeeting, r.Classify(context.Background(), st))
	assert.Zero(t, fake.calls)
}
