package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/history"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/internal/state"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
	"github.com/concierge-ai/assistant-platform/pkg/metrics"
)

// TurnSink receives the audit event for each completed turn.
type TurnSink interface {
	Publish(ctx context.Context, event *model.TurnEvent) error
}

// DispatcherConfig carries the memory-management knobs.
type DispatcherConfig struct {
	MaxHistoryTokens   int
	KeepRecentMessages int
	SummaryEnabled     bool
}

// Dispatcher orchestrates one conversation turn: load state, compress
// history, route, handle, persist, audit. Turns on the same thread are
// serialized; turns on different threads run concurrently.
type Dispatcher struct {
	store      state.Store
	router     *Router
	handlers   map[model.Intent]Handler
	fallback   Handler
	summarizer *history.Summarizer
	sink       TurnSink
	cfg        DispatcherConfig
	logger     *logger.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// NewDispatcher creates a dispatcher. The fallback handler serves any intent
// missing from handlers; sink may be nil.
func NewDispatcher(
	store state.Store,
	router *Router,
	handlers map[model.Intent]Handler,
	fallback Handler,
	summarizer *history.Summarizer,
	sink TurnSink,
	cfg DispatcherConfig,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:      store,
		router:     router,
		handlers:   handlers,
		fallback:   fallback,
		summarizer: summarizer,
		sink:       sink,
		cfg:        cfg,
		logger:     log,
		threads:    make(map[string]*sync.Mutex),
	}
}

// threadLock returns the mutex serializing turns for one thread.
func (d *Dispatcher) threadLock(threadID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		d.threads[threadID] = lock
	}
	return lock
}

// HandleTurn processes one inbound message for a thread and returns the
// assistant's reply. It always returns a non-empty reply; internal failures
// degrade to an apology rather than an error.
func (d *Dispatcher) HandleTurn(ctx context.Context, threadID, content string) (reply string, intent model.Intent) {
	start := time.Now()
	lock := d.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	st := d.load(ctx, threadID)
	ok := true

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("turn panicked",
				zap.String("thread_id", threadID),
				zap.Any("panic", r),
			)
			reply = apology
			intent = st.Intent
			ok = false
		}
		d.finish(ctx, st, start, ok)
	}()

	if d.cfg.SummaryEnabled && history.ShouldCompress(st.Messages, d.cfg.MaxHistoryTokens) {
		st.Messages, st.Summary = d.summarizer.Compress(ctx, st.Messages, st.Summary, d.cfg.KeepRecentMessages)
	}

	st.Append(model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	})
	st.Response = ""

	routed := d.router.Classify(ctx, st)

	handler, found := d.handlers[routed]
	if !found {
		handler = d.fallback
	}
	handler.Handle(ctx, st)

	if st.Response == "" {
		d.logger.Error("handler produced no response",
			zap.String("thread_id", threadID),
			zap.String("intent", string(routed)),
		)
		reply = apology
		st.Response = apology
		st.Append(model.Message{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Role:      model.RoleAssistant,
			Content:   apology,
			CreatedAt: time.Now(),
		})
		ok = false
	} else {
		reply = st.Response
	}

	return reply, routed
}

// load fetches the thread state, starting a fresh one when none exists or
// the stored state cannot be read. A corrupted or unavailable store loses
// history for the turn but never blocks a reply.
func (d *Dispatcher) load(ctx context.Context, threadID string) *model.ThreadState {
	st, err := d.store.Load(ctx, threadID)
	if err != nil {
		if err != state.ErrNotFound {
			d.logger.Error("thread state load failed, starting fresh",
				zap.String("thread_id", threadID),
				zap.Error(err),
			)
		}
		return model.NewThreadState(threadID)
	}
	return st
}

// finish persists state, publishes the audit event, and records metrics.
func (d *Dispatcher) finish(ctx context.Context, st *model.ThreadState, start time.Time, ok bool) {
	st.TotalTokens = history.EstimateTokens(st.Messages)

	if err := d.store.Save(ctx, st); err != nil {
		metrics.ThreadStateSaves.WithLabelValues("error").Inc()
		d.logger.Error("thread state save failed",
			zap.String("thread_id", st.ThreadID),
			zap.Error(err),
		)
	} else {
		metrics.ThreadStateSaves.WithLabelValues("ok").Inc()
	}

	elapsed := time.Since(start)

	if d.sink != nil {
		event := &model.TurnEvent{
			ID:        uuid.Must(uuid.NewV7()).String(),
			ThreadID:  st.ThreadID,
			Intent:    st.Intent,
			Phase:     string(st.Phase),
			LatencyMs: elapsed.Milliseconds(),
			OK:        ok,
			CreatedAt: time.Now(),
		}
		if err := d.sink.Publish(ctx, event); err != nil {
			d.logger.Warn("turn audit publish failed",
				zap.String("thread_id", st.ThreadID),
				zap.Error(err),
			)
		}
	}

	status := "ok"
	if !ok {
		status = "error"
	}
	metrics.RecordTurn(string(st.Intent), status, elapsed.Seconds())

	d.logger.Info("turn completed",
		zap.String("thread_id", st.ThreadID),
		zap.String("intent", string(st.Intent)),
		zap.String("phase", string(st.Phase)),
		zap.Duration("duration", elapsed),
		zap.Bool("ok", ok),
	)
}

// ClearThread wipes a thread's stored state, abandoning any in-progress
// conflict flow.
func (d *Dispatcher) ClearThread(ctx context.Context, threadID string) error {
	lock := d.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()
	return d.store.Clear(ctx, threadID)
}
