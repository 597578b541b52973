package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/concierge-ai/assistant-platform/internal/llm"
)

// Extraction failures are first-class branches, not exceptions: the provider
// always returns text, and the caller decides what a malformed reply means.
var (
	// ErrNoJSON means no JSON object could be located in the provider output.
	ErrNoJSON = errors.New("no JSON object in provider output")
	// ErrBadTimestamp means the provider output did not parse as a timestamp.
	ErrBadTimestamp = errors.New("unparsable timestamp in provider output")
)

// isoLocal is the local ISO-8601 layout used throughout the calendar flow.
const isoLocal = "2006-01-02T15:04:05"

// decodeJSON locates the outermost JSON object in raw provider output and
// decodes it. Providers wrap JSON in prose or markdown fences often enough
// that strict decoding of the whole body is useless.
func decodeJSON(content string, v any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return nil
}

var isoPrefixRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// parseLocalTime parses a timestamp string leniently: exact local ISO first,
// then an ISO prefix embedded in a longer string (calendar backends append
// offsets), then dateparse for anything else.
func parseLocalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(isoLocal, s, time.Local); err == nil {
		return t, nil
	}
	if m := isoPrefixRe.FindString(s); m != "" {
		if t, err := time.ParseInLocation(isoLocal, m, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := dateparse.ParseLocal(s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrBadTimestamp
}

// meetingExtraction is the JSON shape the meeting-detail prompt requests.
type meetingExtraction struct {
	HasAllInfo      bool     `json:"has_all_info"`
	Summary         string   `json:"summary"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees"`
	Missing         string   `json:"missing"`
}

func meetingPrompt(now time.Time) string {
	currentDate := now.Format("2006-01-02")
	currentTime := now.Format("15:04")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	return fmt.Sprintf(`Você é um assistente de agendamento. HORA ATUAL: %s do dia %s.

Extraia da mensagem do usuário:
1. Título da reunião
2. Data e hora no formato ISO: YYYY-MM-DDTHH:MM:SS
3. Duração em minutos
4. E-mails dos participantes

REGRAS IMPORTANTES:
- HOJE = %s (data de hoje)
- AMANHÃ = %s
- Se usuário diz "18h" ou "18hrs", a hora é 18:00:00
- NUNCA mude o horário que o usuário especificou!
- Se a hora ainda não passou hoje (agora são %s), agende para HOJE
- Se a hora já passou hoje, agende para AMANHÃ no mesmo horário

Responda APENAS JSON (sem markdown):
{
  "has_all_info": true,
  "summary": "título",
  "start_time": "YYYY-MM-DDTHH:MM:SS",
  "duration_minutes": 60,
  "attendees": ["email@example.com"],
  "missing": ""
}

OU se faltar info:
{
  "has_all_info": false,
  "missing": "o que falta"
}`, currentTime, currentDate, currentDate, tomorrow, currentTime)
}

// extractMeeting asks the LLM for structured meeting details, anchored to the
// current local time so "hoje"/"amanhã"/"18h" resolve correctly.
func extractMeeting(ctx context.Context, client llm.Client, now time.Time, text string) (*meetingExtraction, error) {
	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: meetingPrompt(now)},
			{Role: "user", Content: "Mensagem: " + text},
		},
	})
	if err != nil {
		return nil, err
	}

	var out meetingExtraction
	if err := decodeJSON(resp.Content, &out); err != nil {
		return nil, err
	}
	if out.HasAllInfo && out.DurationMinutes <= 0 {
		out.DurationMinutes = 60
	}
	return &out, nil
}

func timePrompt(now time.Time) string {
	currentDate := now.Format("2006-01-02")
	currentTime := now.Format("15:04")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	return fmt.Sprintf(`Você é um assistente de parsing de horários. HORA ATUAL: %s do dia %s.

Extraia o novo horário da mensagem do usuário e converta para ISO format.

REGRAS:
- HOJE = %s
- AMANHÃ = %s
- "20h" ou "20hrs" = 20:00:00
- Retorne apenas no formato: YYYY-MM-DDTHH:MM:SS

Exemplo de resposta: 2026-02-03T20:00:00`, currentTime, currentDate, currentDate, tomorrow)
}

// extractTime asks the LLM for a single ISO timestamp and validates it.
func extractTime(ctx context.Context, client llm.Client, now time.Time, text string) (time.Time, error) {
	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: timePrompt(now)},
			{Role: "user", Content: "Mensagem: " + text},
		},
	})
	if err != nil {
		return time.Time{}, err
	}

	return parseLocalTime(resp.Content)
}
