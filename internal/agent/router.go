package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// Router classifies each inbound message into an intent, unless the thread is
// mid-flow, in which case the in-progress protocol wins unconditionally.
type Router struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewRouter creates a router.
func NewRouter(client llm.Client, log *logger.Logger) *Router {
	return &Router{llm: client, logger: log}
}

const routerPrompt = `You are a router agent. Analyze the user's message and determine their intent.

Available intents:
- "knowledge_query": User is asking a question that might be answered from the knowledge base
- "schedule_meeting": User wants to schedule a meeting or event
- "send_email": User wants to send or read emails
- "task_management": User wants to create, list, complete or delete tasks (TODO list)
- "web_search": User explicitly asks to search the internet or for news
- "general_chat": General conversation, greeting, or unclear intent

Respond with ONLY the intent name, nothing else.`

// Classify determines the intent for the thread's latest message and records
// it on the state.
//
// Mid-flow override: while a scheduling conflict is unresolved the next user
// message is answering a question the system itself posed, so it routes to
// the calendar handler regardless of its literal content.
func (r *Router) Classify(ctx context.Context, st *model.ThreadState) model.Intent {
	if st.PendingMeeting != nil || st.Phase == model.PhaseAwaitingRescheduleTime {
		r.logger.Info("pending calendar interaction, routing to calendar handler",
			zap.String("thread_id", st.ThreadID),
			zap.String("phase", string(st.Phase)),
		)
		st.Intent = model.IntentScheduleMeeting
		return st.Intent
	}

	lastMessage := st.LastMessage()

	resp, err := r.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: routerPrompt},
			{Role: "user", Content: "User message: " + lastMessage},
		},
	})
	if err != nil {
		r.logger.Error("intent classification failed, defaulting to general chat", zap.Error(err))
		st.Intent = model.IntentGeneralChat
		return st.Intent
	}

	intent := model.Intent(strings.ToLower(strings.TrimSpace(resp.Content)))
	if !model.KnownIntents[intent] {
		intent = model.IntentGeneralChat
	}

	st.Intent = intent
	r.logger.Info("intent determined",
		zap.String("thread_id", st.ThreadID),
		zap.String("intent", string(intent)),
		zap.Bool("should_use_tools", intent != model.IntentGeneralChat),
	)
	return intent
}
