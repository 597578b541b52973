package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// EmailAgent handles send/read/search email requests. Stateless across turns.
type EmailAgent struct {
	llm    llm.Client
	email  capability.Email
	logger *logger.Logger
}

// NewEmailAgent creates an email agent.
func NewEmailAgent(client llm.Client, email capability.Email, log *logger.Logger) *EmailAgent {
	return &EmailAgent{llm: client, email: email, logger: log}
}

const emailPrompt = `Você é um assistente de email. Analise a mensagem e determine a ação:

AÇÕES DISPONÍVEIS:
1. "send" - Enviar um email
2. "read" - Ler emails recebidos
3. "search" - Buscar emails específicos

Responda APENAS com um JSON:
{
  "action": "send|read|search",
  "params": {
    "to_email": "email",
    "subject": "assunto",
    "content": "conteúdo",
    "cc": ["email1"],
    "max_emails": 5,
    "unread_only": false,
    "query": "termo de busca",
    "max_results": 10
  },
  "missing": "o que falta (se incompleto)"
}`

type emailExtraction struct {
	Action string `json:"action"`
	Params struct {
		ToEmail    string   `json:"to_email"`
		Subject    string   `json:"subject"`
		Content    string   `json:"content"`
		CC         []string `json:"cc"`
		BCC        []string `json:"bcc"`
		MaxEmails  int      `json:"max_emails"`
		UnreadOnly bool     `json:"unread_only"`
		Query      string   `json:"query"`
		MaxResults int      `json:"max_results"`
	} `json:"params"`
	Missing string `json:"missing"`
}

// Handle processes one email turn.
func (a *EmailAgent) Handle(ctx context.Context, st *model.ThreadState) {
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: emailPrompt},
			{Role: "user", Content: "Mensagem: " + st.LastMessage()},
		},
	})
	if err != nil {
		a.logger.Error("email action classification failed", zap.Error(err))
		reply(st, "Desculpe, ocorreu um erro. Por favor, tente novamente.")
		return
	}

	var req emailExtraction
	if err := decodeJSON(resp.Content, &req); err != nil {
		reply(st, "Desculpe, não entendi o que você quer fazer com emails.")
		return
	}

	if req.Missing != "" {
		reply(st, fmt.Sprintf("Para realizar esta ação, preciso de: %s", req.Missing))
		return
	}

	switch req.Action {
	case "send":
		a.send(ctx, st, req)
	case "read":
		a.read(ctx, st, req)
	case "search":
		a.search(ctx, st, req)
	default:
		reply(st, "Desculpe, não entendi o que você quer fazer com emails.")
	}
}

func (a *EmailAgent) send(ctx context.Context, st *model.ThreadState, req emailExtraction) {
	p := req.Params
	if err := a.email.Send(ctx, p.ToEmail, p.Subject, p.Content, p.CC, p.BCC); err != nil {
		reply(st, fmt.Sprintf("❌ Erro: %s", err))
		return
	}
	reply(st, fmt.Sprintf("✅ Email enviado!\n\n📧 Para: %s\n📝 Assunto: %s", p.ToEmail, p.Subject))
}

func (a *EmailAgent) read(ctx context.Context, st *model.ThreadState, req emailExtraction) {
	max := req.Params.MaxEmails
	if max <= 0 {
		max = 5
	}
	if max > 10 {
		max = 10
	}

	emails, err := a.email.Read(ctx, max, req.Params.UnreadOnly)
	if err != nil {
		reply(st, fmt.Sprintf("❌ %s", err))
		return
	}

	if len(emails) == 0 {
		if req.Params.UnreadOnly {
			reply(st, "📬 Nenhum email não lido encontrado.")
		} else {
			reply(st, "📬 Nenhum email encontrado.")
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📨 **%d email(s)**:\n\n", len(emails))
	for i, e := range emails {
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, e.Subject)
		fmt.Fprintf(&b, "   📤 De: %s\n", e.From)
		fmt.Fprintf(&b, "   📅 %s\n", e.Date)
		if e.Body != "" {
			preview := strings.ReplaceAll(e.Body, "\n", " ")
			// Truncate on a rune boundary: byte slicing would split
			// accented characters mid-sequence.
			if runes := []rune(preview); len(runes) > 150 {
				preview = string(runes[:150])
			}
			fmt.Fprintf(&b, "   💬 %s...\n", preview)
		}
		b.WriteString("\n")
	}
	reply(st, b.String())
}

func (a *EmailAgent) search(ctx context.Context, st *model.ThreadState, req emailExtraction) {
	max := req.Params.MaxResults
	if max <= 0 {
		max = 10
	}
	if max > 20 {
		max = 20
	}

	emails, err := a.email.Search(ctx, req.Params.Query, max)
	if err != nil {
		reply(st, fmt.Sprintf("❌ %s", err))
		return
	}

	if len(emails) == 0 {
		reply(st, fmt.Sprintf("🔍 Nenhum email encontrado com '%s'", req.Params.Query))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **%d email(s) com '%s':**\n\n", len(emails), req.Params.Query)
	for i, e := range emails {
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, e.Subject)
		fmt.Fprintf(&b, "   📤 De: %s\n", e.From)
		fmt.Fprintf(&b, "   📅 %s\n\n", e.Date)
	}
	reply(st, b.String())
}
