package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// TaskAgent manages the TODO list: create, list, complete, delete, and
// upcoming deadlines. Creating a high-priority task with a near deadline
// also books a calendar reminder.
type TaskAgent struct {
	llm      llm.Client
	tasks    capability.Tasks
	calendar capability.Calendar
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskAgent creates a task agent.
func NewTaskAgent(client llm.Client, tasks capability.Tasks, cal capability.Calendar, log *logger.Logger) *TaskAgent {
	return &TaskAgent{llm: client, tasks: tasks, calendar: cal, logger: log, now: time.Now}
}

var priorityEmoji = map[string]string{
	"urgent": "🔴",
	"high":   "🟠",
	"medium": "🟡",
	"low":    "🟢",
}

const taskActionPrompt = `Você é um assistente que detecta intenções relacionadas a tarefas (TODO list).

Analise a mensagem do usuário e retorne APENAS UMA palavra:
- "create" - usuário quer CRIAR/ADICIONAR uma nova tarefa
- "list" - usuário quer VER/LISTAR tarefas
- "complete" - usuário quer COMPLETAR/MARCAR como feita uma tarefa
- "delete" - usuário quer DELETAR/REMOVER uma tarefa
- "deadlines" - usuário quer ver tarefas com PRAZO próximo

Retorne apenas a palavra.`

// Handle processes one task-management turn.
func (a *TaskAgent) Handle(ctx context.Context, st *model.ThreadState) {
	action := a.detectAction(ctx, st.LastMessage())

	switch action {
	case "create":
		a.create(ctx, st)
	case "complete":
		a.complete(ctx, st)
	case "delete":
		a.remove(ctx, st)
	case "deadlines":
		a.deadlines(ctx, st)
	default:
		a.list(ctx, st)
	}
}

func (a *TaskAgent) detectAction(ctx context.Context, message string) string {
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: taskActionPrompt},
			{Role: "user", Content: message},
		},
	})
	if err != nil {
		a.logger.Error("task action detection failed", zap.Error(err))
		return "list"
	}
	return strings.ToLower(strings.TrimSpace(resp.Content))
}

type taskExtraction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
}

func (a *TaskAgent) create(ctx context.Context, st *model.ThreadState) {
	prompt := `Você é um assistente de gerenciamento de tarefas.

Extraia as informações da tarefa da mensagem do usuário e retorne um JSON:
{
    "title": "título da tarefa (obrigatório)",
    "description": "descrição detalhada (opcional)",
    "priority": "low|medium|high|urgent (padrão: medium)",
    "deadline": "YYYY-MM-DD ou YYYY-MM-DDTHH:MM:SS (opcional)"
}

Data/hora atual: ` + a.now().Format("2006-01-02 15:04") + `

Retorne apenas o JSON.`

	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: st.LastMessage()},
		},
	})
	if err != nil {
		reply(st, "Desculpe, ocorreu um erro ao criar a tarefa. Por favor, tente novamente.")
		return
	}

	var info taskExtraction
	if err := decodeJSON(resp.Content, &info); err != nil || info.Title == "" {
		reply(st, "Não consegui identificar o título da tarefa. Por favor, seja mais específico.")
		return
	}
	if info.Priority == "" {
		info.Priority = "medium"
	}

	task, err := a.tasks.Create(ctx, info.Title, info.Description, info.Priority, info.Deadline)
	if err != nil {
		reply(st, fmt.Sprintf("❌ Erro ao criar tarefa: %s", err))
		return
	}

	autoCalendar := a.maybeCreateReminder(ctx, task)

	text := "✅ Tarefa criada com sucesso!\n\n"
	text += fmt.Sprintf("%s **%s**\n", emojiFor(task.Priority), task.Title)
	text += fmt.Sprintf("🆔 ID: %d\n", task.ID)
	text += fmt.Sprintf("📊 Prioridade: %s\n", task.Priority)
	if task.Description != "" {
		text += fmt.Sprintf("📝 Descrição: %s\n", task.Description)
	}
	if task.Deadline != "" {
		text += fmt.Sprintf("⏰ Prazo: %s\n", task.Deadline)
	}
	if autoCalendar {
		text += "\n🔔 **Evento criado no calendário automaticamente!**\n"
		text += "Você receberá um lembrete 30 minutos antes do prazo."
	}
	reply(st, text)
}

// maybeCreateReminder books a 30-minute calendar reminder before the
// deadline for high or urgent tasks due within the next 7 days.
func (a *TaskAgent) maybeCreateReminder(ctx context.Context, task *capability.Task) bool {
	if task.Deadline == "" {
		return false
	}
	if task.Priority != "high" && task.Priority != "urgent" {
		return false
	}

	deadline, err := parseLocalTime(task.Deadline)
	if err != nil {
		return false
	}
	daysUntil := int(deadline.Sub(a.now()).Hours() / 24)
	if daysUntil < 0 || daysUntil > 7 {
		return false
	}

	_, err = a.calendar.Schedule(ctx, model.MeetingRequest{
		Summary:         "⏰ Lembrete: " + task.Title,
		StartTime:       deadline.Add(-30 * time.Minute).Format(isoLocal),
		DurationMinutes: 30,
	})
	if err != nil {
		a.logger.Warn("task reminder scheduling failed",
			zap.Int("task_id", task.ID), zap.Error(err))
		return false
	}

	a.logger.Info("auto-created calendar reminder for task", zap.Int("task_id", task.ID))
	return true
}

type taskFilterExtraction struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func (a *TaskAgent) list(ctx context.Context, st *model.ThreadState) {
	prompt := `Analise a mensagem e identifique filtros para listar tarefas.

Retorne JSON:
{
    "status": "pending|completed|all (padrão: pending)",
    "priority": "low|medium|high|urgent ou vazio"
}

Retorne apenas o JSON.`

	filters := taskFilterExtraction{Status: "pending"}
	if resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: st.LastMessage()},
		},
	}); err == nil {
		var parsed taskFilterExtraction
		if decodeJSON(resp.Content, &parsed) == nil && parsed.Status != "" {
			filters = parsed
		}
	}

	tasks, err := a.tasks.List(ctx, capability.TaskFilter{Status: filters.Status, Priority: filters.Priority})
	if err != nil {
		reply(st, fmt.Sprintf("❌ Erro ao listar tarefas: %s", err))
		return
	}

	statusDesc := map[string]string{
		"pending":   "pendentes",
		"completed": "concluídas",
		"all":       "todas",
	}[filters.Status]

	if len(tasks) == 0 {
		reply(st, fmt.Sprintf("📋 Você não tem tarefas %s.", statusDesc))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Suas tarefas %s:** (%d)\n\n", statusDesc, len(tasks))
	for _, task := range tasks {
		statusIcon := "⬜"
		if task.Status == "completed" {
			statusIcon = "✅"
		}
		fmt.Fprintf(&b, "%s %s **%s** (ID: %d)\n", statusIcon, emojiFor(task.Priority), task.Title, task.ID)
		if task.Description != "" {
			fmt.Fprintf(&b, "   📝 %s\n", task.Description)
		}
		if task.Deadline != "" {
			fmt.Fprintf(&b, "   ⏰ Prazo: %s\n", task.Deadline)
		}
		b.WriteString("\n")
	}
	reply(st, b.String())
}

func (a *TaskAgent) complete(ctx context.Context, st *model.ThreadState) {
	id, tasks, ok := a.pickTask(ctx, st, "completar")
	if !ok {
		return
	}

	title := fmt.Sprintf("ID %d", id)
	for _, t := range tasks {
		if t.ID == id {
			title = t.Title
			break
		}
	}

	if err := a.tasks.Complete(ctx, id); err != nil {
		reply(st, fmt.Sprintf("❌ Erro: %s", err))
		return
	}
	reply(st, fmt.Sprintf("✅ Tarefa completada!\n\n**%s** 🎉", title))
}

func (a *TaskAgent) remove(ctx context.Context, st *model.ThreadState) {
	id, tasks, ok := a.pickTask(ctx, st, "deletar")
	if !ok {
		return
	}

	title := fmt.Sprintf("ID %d", id)
	for _, t := range tasks {
		if t.ID == id {
			title = t.Title
			break
		}
	}

	if err := a.tasks.Delete(ctx, id); err != nil {
		reply(st, fmt.Sprintf("❌ Erro: %s", err))
		return
	}
	reply(st, fmt.Sprintf("🗑️ Tarefa removida:\n\n**%s**", title))
}

// pickTask lists pending tasks and asks the LLM which one the user means.
// When identification fails it re-prompts with the task list and reports
// not-ok so the caller stops.
func (a *TaskAgent) pickTask(ctx context.Context, st *model.ThreadState, verb string) (int, []capability.Task, bool) {
	tasks, err := a.tasks.List(ctx, capability.TaskFilter{Status: "pending"})
	if err != nil || len(tasks) == 0 {
		reply(st, fmt.Sprintf("Não encontrei tarefas pendentes para %s.", verb))
		return 0, nil, false
	}

	var b strings.Builder
	b.WriteString("Você precisa identificar qual tarefa o usuário quer " + verb + ".\n\nTarefas pendentes:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "%d. %s\n", t.ID, t.Title)
	}
	b.WriteString("\nAnalise a mensagem e retorne o ID da tarefa (número) ou 0 se não identificar.\nRetorne apenas o número.")

	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: b.String()},
			{Role: "user", Content: st.LastMessage()},
		},
	})
	if err != nil {
		reply(st, "Desculpe, ocorreu um erro. Por favor, tente novamente.")
		return 0, nil, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(resp.Content))
	if err != nil || id == 0 {
		var list strings.Builder
		list.WriteString("📋 **Tarefas pendentes:**\n\n")
		for i, t := range tasks {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&list, "%d. %s\n", t.ID, t.Title)
		}
		fmt.Fprintf(&list, "\nQual tarefa você quer %s? Digite o ID.", verb)
		reply(st, list.String())
		return 0, nil, false
	}

	return id, tasks, true
}

func (a *TaskAgent) deadlines(ctx context.Context, st *model.ThreadState) {
	tasks, err := a.tasks.UpcomingDeadlines(ctx, 7)
	if err != nil {
		reply(st, fmt.Sprintf("❌ Erro ao buscar prazos: %s", err))
		return
	}

	if len(tasks) == 0 {
		reply(st, "📅 Nenhuma tarefa com prazo nos próximos 7 dias.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ **Tarefas com prazo próximo:** (%d)\n\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&b, "%s **%s** (ID: %d)\n", emojiFor(task.Priority), task.Title, task.ID)
		fmt.Fprintf(&b, "   ⏰ Prazo: %s\n\n", task.Deadline)
	}

	// Deadlines and meetings compete for the same week; show both.
	if events, err := a.calendar.ListUpcoming(ctx, 5, 7); err == nil && len(events) > 0 {
		b.WriteString("📅 **Eventos na agenda:**\n\n")
		for _, ev := range events {
			fmt.Fprintf(&b, "• %s — %s\n", ev.Summary, ev.Start)
		}
	}
	reply(st, b.String())
}

func emojiFor(priority string) string {
	if e, ok := priorityEmoji[priority]; ok {
		return e
	}
	return "📋"
}
