package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
	"github.com/concierge-ai/assistant-platform/pkg/metrics"
)

// CalendarAgent schedules meetings and drives the conflict-resolution flow:
// a new request that collides with an existing event presents five options,
// which branch into direct resolution, reschedule-time capture, or
// slot-selection capture. Every terminal outcome clears the flow state.
type CalendarAgent struct {
	llm      llm.Client
	calendar capability.Calendar
	logger   *logger.Logger

	businessHourStart int
	businessHourEnd   int
	slotSuggestions   int

	// now is injectable so relative dates are testable.
	now func() time.Time
}

// NewCalendarAgent creates a calendar agent.
func NewCalendarAgent(client llm.Client, cal capability.Calendar, log *logger.Logger, businessStart, businessEnd, slotSuggestions int) *CalendarAgent {
	if businessStart <= 0 {
		businessStart = 8
	}
	if businessEnd <= 0 {
		businessEnd = 22
	}
	if slotSuggestions <= 0 {
		slotSuggestions = 3
	}
	return &CalendarAgent{
		llm:               client,
		calendar:          cal,
		logger:            log,
		businessHourStart: businessStart,
		businessHourEnd:   businessEnd,
		slotSuggestions:   slotSuggestions,
		now:               time.Now,
	}
}

// Handle processes one calendar turn.
func (a *CalendarAgent) Handle(ctx context.Context, st *model.ThreadState) {
	switch st.Phase {
	case model.PhaseAwaitingRescheduleTime:
		a.handleRescheduleTime(ctx, st)
	case model.PhaseAwaitingSlotChoice:
		a.handleSlotChoice(ctx, st)
	case model.PhaseConflictDetected:
		a.handleMenuChoice(ctx, st)
	default:
		a.handleNewRequest(ctx, st)
	}
}

// handleNewRequest extracts a meeting from free text, checks for conflicts,
// and either schedules directly or enters the conflict flow.
func (a *CalendarAgent) handleNewRequest(ctx context.Context, st *model.ThreadState) {
	lastMessage := st.LastMessage()

	info, err := extractMeeting(ctx, a.llm, a.now(), lastMessage)
	if err != nil {
		a.logger.Error("meeting extraction failed", zap.Error(err))
		reply(st, "Desculpe, não consegui processar sua solicitação de agendamento. Pode fornecer mais detalhes sobre a reunião?")
		return
	}

	if !info.HasAllInfo {
		missing := info.Missing
		if missing == "" {
			missing = "algumas informações"
		}
		reply(st, fmt.Sprintf("Para agendar a reunião, preciso de: %s", missing))
		return
	}

	start, err := parseLocalTime(info.StartTime)
	if err != nil {
		a.logger.Error("extracted start time unparsable", zap.String("start_time", info.StartTime))
		reply(st, "Desculpe, não consegui entender a data e hora da reunião. Pode repetir com o horário?")
		return
	}
	end := start.Add(time.Duration(info.DurationMinutes) * time.Minute)

	check, err := a.calendar.CheckConflicts(ctx, start, end)
	if err != nil {
		a.logger.Error("conflict check failed", zap.Error(err))
		reply(st, "Desculpe, não consegui verificar sua agenda agora. Por favor, tente novamente.")
		return
	}

	meeting := model.MeetingRequest{
		Summary:         info.Summary,
		StartTime:       start.Format(isoLocal),
		DurationMinutes: info.DurationMinutes,
		Attendees:       info.Attendees,
	}

	if check.HasConflict && len(check.Conflicts) > 0 {
		st.PendingMeeting = &meeting
		st.ConflictingEvents = check.Conflicts
		st.Phase = model.PhaseConflictDetected
		metrics.ConflictTransitions.WithLabelValues("detected").Inc()

		reply(st, conflictMenu(check.Conflicts))
		a.logger.Info("scheduling conflict detected",
			zap.String("thread_id", st.ThreadID),
			zap.Int("conflicts", len(check.Conflicts)),
		)
		return
	}

	result, err := a.calendar.Schedule(ctx, meeting)
	if err != nil {
		reply(st, fmt.Sprintf("❌ Não foi possível agendar a reunião: %s", err))
		return
	}

	text := "✅ Reunião agendada com sucesso!\n\n"
	text += fmt.Sprintf("📅 %s\n", meeting.Summary)
	text += fmt.Sprintf("🕐 %s\n", meeting.StartTime)
	text += fmt.Sprintf("⏱️ Duração: %d minutos\n", meeting.DurationMinutes)
	if result.Link != "" {
		text += fmt.Sprintf("🔗 Link: %s", result.Link)
	}
	reply(st, text)
}

// conflictMenu formats the conflicting events and the five numbered options.
func conflictMenu(conflicts []model.CalendarEvent) string {
	var b strings.Builder
	b.WriteString("⚠️ **Conflito de horário detectado!**\n\n")
	fmt.Fprintf(&b, "Você já tem %d reunião(ões) agendada(s) neste horário:\n\n", len(conflicts))

	for i, c := range conflicts {
		startHour := c.Start
		if t, err := parseLocalTime(c.Start); err == nil {
			startHour = t.Format("15:04")
		}
		fmt.Fprintf(&b, "%d. **%s** às %s\n", i+1, c.Summary, startHour)
	}

	b.WriteString("\n**O que deseja fazer?**\n")
	b.WriteString("1️⃣ Agendar mesmo assim (sobrepor)\n")
	b.WriteString("2️⃣ Cancelar a reunião existente e agendar esta\n")
	b.WriteString("3️⃣ Remanejar a reunião existente para outro horário\n")
	b.WriteString("4️⃣ Sugerir horários alternativos livres\n")
	b.WriteString("5️⃣ Cancelar esta nova reunião\n\n")
	b.WriteString("Digite o número da opção desejada.")
	return b.String()
}

// handleMenuChoice resolves the user's pick from the five-option menu.
func (a *CalendarAgent) handleMenuChoice(ctx context.Context, st *model.ThreadState) {
	if st.PendingMeeting == nil {
		st.ClearConflictFlow()
		reply(st, "Não encontrei uma reunião pendente. Por favor, tente agendar novamente.")
		return
	}

	meeting := *st.PendingMeeting
	conflicts := st.ConflictingEvents

	switch ParseConflictChoice(st.LastMessage()) {
	case ChoiceOverlap:
		metrics.ConflictTransitions.WithLabelValues("overlap").Inc()
		result, err := a.calendar.Schedule(ctx, meeting)
		var text string
		if err != nil {
			text = fmt.Sprintf("❌ Erro ao agendar: %s", err)
		} else {
			text = "✅ Reunião agendada (com sobreposição)!\n\n"
			text += fmt.Sprintf("📅 %s\n", meeting.Summary)
			text += fmt.Sprintf("🕐 %s\n", meeting.StartTime)
			if result.Link != "" {
				text += fmt.Sprintf("🔗 %s", result.Link)
			}
		}
		st.ClearConflictFlow()
		reply(st, text)

	case ChoiceCancelExisting:
		metrics.ConflictTransitions.WithLabelValues("cancel_existing").Inc()
		if len(conflicts) == 0 {
			st.ClearConflictFlow()
			reply(st, "Não encontrei a reunião existente a ser cancelada.")
			return
		}

		var text string
		if err := a.calendar.Cancel(ctx, conflicts[0].ID); err != nil {
			text = fmt.Sprintf("❌ Erro ao cancelar reunião existente: %s", err)
		} else if result, err := a.calendar.Schedule(ctx, meeting); err != nil {
			text = fmt.Sprintf("⚠️ Reunião antiga cancelada, mas erro ao agendar nova: %s", err)
		} else {
			text = "✅ Reunião antiga cancelada e nova agendada!\n\n"
			text += fmt.Sprintf("❌ Cancelado: %s\n", conflicts[0].Summary)
			text += fmt.Sprintf("✅ Novo: %s\n", meeting.Summary)
			text += fmt.Sprintf("🕐 %s\n", meeting.StartTime)
			if result.Link != "" {
				text += fmt.Sprintf("🔗 %s", result.Link)
			}
		}
		st.ClearConflictFlow()
		reply(st, text)

	case ChoiceReschedule:
		metrics.ConflictTransitions.WithLabelValues("reschedule_requested").Inc()
		existing := "a reunião existente"
		if len(conflicts) > 0 {
			existing = conflicts[0].Summary
		}
		st.Phase = model.PhaseAwaitingRescheduleTime

		text := "🔄 Para remanejar a reunião existente, por favor informe:\n\n"
		text += fmt.Sprintf("Reunião a ser remanejada: **%s**\n\n", existing)
		text += "Qual o novo horário? (ex: 'amanhã 16h' ou 'hoje 20h')"
		reply(st, text)

	case ChoicesSuggestSlots:
		a.suggestSlots(ctx, st, meeting)

	case ChoiceAbortNewMeeting:
		metrics.ConflictTransitions.WithLabelValues("aborted").Inc()
		st.ClearConflictFlow()
		reply(st, "❌ Nova reunião cancelada. Sua agenda permanece inalterada.")

	default:
		reply(st, "Não entendi sua escolha. Por favor, digite o número (1-5) da opção desejada.")
	}
}

// suggestSlots queries free slots for the pending meeting's date and offers
// them as a numbered list. When nothing is free, only the offered slots are
// cleared: the thread idles in the conflict menu awaiting a different choice.
func (a *CalendarAgent) suggestSlots(ctx context.Context, st *model.ThreadState, meeting model.MeetingRequest) {
	date, err := parseLocalTime(meeting.StartTime)
	if err != nil {
		reply(st, "Desculpe, não consegui determinar a data da reunião pendente.")
		return
	}

	slots, err := a.calendar.FindAvailableSlots(ctx, date, meeting.DurationMinutes, a.slotSuggestions)
	if err != nil {
		a.logger.Error("slot suggestion failed", zap.Error(err))
		reply(st, "Desculpe, não consegui consultar horários livres agora. Por favor, tente novamente.")
		return
	}
	slots = a.usableSlots(slots)

	if len(slots) == 0 {
		st.SuggestedSlots = nil
		reply(st, "😕 Não encontrei horários livres hoje. Deseja tentar outro dia?")
		return
	}
	if len(slots) > a.slotSuggestions {
		slots = slots[:a.slotSuggestions]
	}

	st.SuggestedSlots = slots
	st.Phase = model.PhaseAwaitingSlotChoice
	metrics.ConflictTransitions.WithLabelValues("slots_suggested").Inc()

	var b strings.Builder
	b.WriteString("💡 **Horários alternativos livres:**\n\n")
	for i, slot := range slots {
		hour := slot.Start
		if t, err := parseLocalTime(slot.Start); err == nil {
			hour = t.Format("15:04")
		}
		fmt.Fprintf(&b, "%d. Hoje às %s\n", i+1, hour)
	}
	b.WriteString("\nGostaria de agendar em algum desses horários? (digite o número)")
	reply(st, b.String())
}

// usableSlots drops candidates outside the business-hours window and hours
// already gone, so a same-day suggestion never offers a time in the past.
func (a *CalendarAgent) usableSlots(slots []model.TimeSlot) []model.TimeSlot {
	now := a.now()
	var out []model.TimeSlot
	for _, slot := range slots {
		start, err := parseLocalTime(slot.Start)
		if err != nil {
			continue
		}
		if start.Hour() < a.businessHourStart || start.Hour() >= a.businessHourEnd {
			continue
		}
		if !start.After(now) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// handleRescheduleTime captures a new time for the existing conflicting
// event, moves it preserving its original length, then schedules the pending
// meeting at its originally requested time.
func (a *CalendarAgent) handleRescheduleTime(ctx context.Context, st *model.ThreadState) {
	if len(st.ConflictingEvents) == 0 {
		if st.PendingMeeting == nil {
			st.ClearConflictFlow()
		} else {
			st.Phase = model.PhaseConflictDetected
		}
		reply(st, "Não encontrei a reunião a ser remanejada.")
		return
	}
	if st.PendingMeeting == nil {
		st.ClearConflictFlow()
		reply(st, "Não encontrei uma reunião pendente. Por favor, tente agendar novamente.")
		return
	}

	meeting := *st.PendingMeeting
	conflict := st.ConflictingEvents[0]

	newStart, err := extractTime(ctx, a.llm, a.now(), st.LastMessage())
	if err != nil {
		// The waiting flag is dropped but the rest of the conflict state is
		// kept: the user must pick another option or re-enter option 3.
		a.logger.Error("reschedule time extraction failed", zap.Error(err))
		st.Phase = model.PhaseConflictDetected
		reply(st, "Desculpe, não consegui interpretar o novo horário. Tente novamente com formato como 'hoje 20h' ou 'amanhã 15h'.")
		return
	}

	duration := eventDurationMinutes(conflict)
	a.logger.Info("rescheduling existing event",
		zap.String("event_id", conflict.ID),
		zap.String("summary", conflict.Summary),
		zap.Int("duration_minutes", duration),
	)

	if _, err := a.calendar.Update(ctx, conflict.ID, newStart, duration); err != nil {
		st.Phase = model.PhaseConflictDetected
		reply(st, fmt.Sprintf("❌ Erro ao remanejar reunião: %s", err))
		return
	}

	newTimeStr := newStart.Format(isoLocal)
	var text string
	if result, err := a.calendar.Schedule(ctx, meeting); err != nil {
		text = fmt.Sprintf("⚠️ Reunião antiga movida, mas erro ao agendar nova: %s", err)
	} else {
		text = "✅ Reuniões remanejadas com sucesso!\n\n"
		text += fmt.Sprintf("🔄 **%s** movida para %s\n", conflict.Summary, newTimeStr)
		text += fmt.Sprintf("✅ **%s** agendada para %s\n", meeting.Summary, meeting.StartTime)
		if result.Link != "" {
			text += fmt.Sprintf("🔗 %s", result.Link)
		}
	}

	// Terminal either way; the message differentiates the partial outcome.
	st.ClearConflictFlow()
	metrics.ConflictTransitions.WithLabelValues("rescheduled").Inc()
	reply(st, text)
}

// eventDurationMinutes computes an event's length from its own start and end
// so a rescheduled copy keeps its original duration. Falls back to 60 only
// when the event's times are unparsable.
func eventDurationMinutes(ev model.CalendarEvent) int {
	start, err1 := parseLocalTime(ev.Start)
	end, err2 := parseLocalTime(ev.End)
	if err1 != nil || err2 != nil || !end.After(start) {
		return 60
	}
	return int(end.Sub(start).Minutes())
}

// handleSlotChoice books the pending meeting at a chosen suggested slot.
func (a *CalendarAgent) handleSlotChoice(ctx context.Context, st *model.ThreadState) {
	if st.PendingMeeting == nil || len(st.SuggestedSlots) == 0 {
		st.SuggestedSlots = nil
		if st.PendingMeeting == nil {
			st.ClearConflictFlow()
		} else {
			st.Phase = model.PhaseConflictDetected
		}
		reply(st, "Não encontrei horários sugeridos. Por favor, tente novamente.")
		return
	}

	meeting := *st.PendingMeeting
	slots := st.SuggestedSlots

	idx, err := ParseSlotChoice(st.LastMessage(), len(slots))
	if errors.Is(err, ErrOutOfRange) {
		reply(st, fmt.Sprintf("Por favor, escolha um número entre 1 e %d.", len(slots)))
		return
	}
	if err != nil {
		reply(st, "Por favor, digite o número do horário desejado (1, 2 ou 3).")
		return
	}

	slot := slots[idx-1]
	booked := meeting
	if t, perr := parseLocalTime(slot.Start); perr == nil {
		booked.StartTime = t.Format(isoLocal)
	} else {
		booked.StartTime = slot.Start
	}

	result, err := a.calendar.Schedule(ctx, booked)
	var text string
	if err != nil {
		text = fmt.Sprintf("❌ Erro ao agendar: %s", err)
	} else {
		hour := booked.StartTime
		if t, perr := parseLocalTime(booked.StartTime); perr == nil {
			hour = t.Format("15:04")
		}
		text = "✅ Reunião agendada com sucesso!\n\n"
		text += fmt.Sprintf("📅 %s\n", meeting.Summary)
		text += fmt.Sprintf("🕐 Hoje às %s\n", hour)
		text += fmt.Sprintf("⏱️ Duração: %d minutos\n", meeting.DurationMinutes)
		if result.Link != "" {
			text += fmt.Sprintf("🔗 %s", result.Link)
		}
	}

	st.ClearConflictFlow()
	metrics.ConflictTransitions.WithLabelValues("slot_booked").Inc()
	reply(st, text)
}
