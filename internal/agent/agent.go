// Package agent implements the intent router, the per-intent handlers, and
// the dispatcher that orchestrates one conversation turn.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

// Handler processes one routed turn. It reads the thread state, performs its
// capability calls, and mutates the state in place: Response always, the
// conflict-flow fields when applicable. Handlers recover from their own
// failures and report them as user-facing text; they never return errors
// to the dispatcher.
type Handler interface {
	Handle(ctx context.Context, st *model.ThreadState)
}

// apology is the fixed fallback reply when a turn fails irrecoverably.
const apology = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente."

// reply sets the turn's response and appends it to the history as an
// assistant message.
func reply(st *model.ThreadState, text string) {
	st.Response = text
	st.Append(model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleAssistant,
		Content:   text,
		CreatedAt: time.Now(),
	})
}
