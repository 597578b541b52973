package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/internal/state"
)

const (
	// ThreadBucket is the KV bucket holding per-thread state.
	ThreadBucket = "THREADS"

	// TurnStream is the audit stream of completed turns.
	TurnStream = "TURNS"

	// TurnSubjectPrefix is the prefix for turn audit subjects.
	TurnSubjectPrefix = "turn"
)

// ThreadStore is a durable state.Store backed by a JetStream KV bucket.
// Thread state survives process restarts; writes are atomic per key.
type ThreadStore struct {
	kv jetstream.KeyValue
}

// NewThreadStore ensures the THREADS bucket exists and returns a store on it.
func NewThreadStore(ctx context.Context, client *Client) (*ThreadStore, error) {
	js := client.JetStream()

	kv, err := js.KeyValue(ctx, ThreadBucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      ThreadBucket,
			Description: "Per-thread conversation state",
			History:     1,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create thread bucket: %w", err)
		}
	}

	return &ThreadStore{kv: kv}, nil
}

// Load returns the stored state for a thread, or state.ErrNotFound.
func (s *ThreadStore) Load(ctx context.Context, threadID string) (*model.ThreadState, error) {
	entry, err := s.kv.Get(ctx, threadKey(threadID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load thread state: %w", err)
	}

	var st model.ThreadState
	if err := json.Unmarshal(entry.Value(), &st); err != nil {
		return nil, fmt.Errorf("failed to decode thread state: %w", err)
	}
	return &st, nil
}

// Save writes the state back keyed by thread id.
func (s *ThreadStore) Save(ctx context.Context, st *model.ThreadState) error {
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode thread state: %w", err)
	}

	if _, err := s.kv.Put(ctx, threadKey(st.ThreadID), data); err != nil {
		return fmt.Errorf("failed to save thread state: %w", err)
	}
	return nil
}

// Clear removes a thread's state.
func (s *ThreadStore) Clear(ctx context.Context, threadID string) error {
	err := s.kv.Delete(ctx, threadKey(threadID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to clear thread state: %w", err)
	}
	return nil
}

// threadKey sanitizes a thread id into a valid KV key. KV keys cannot
// contain spaces or dots; WhatsApp ids may carry both.
func threadKey(threadID string) string {
	out := make([]rune, 0, len(threadID))
	for _, r := range threadID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '=':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}

// TurnPublisher publishes turn audit events to the TURNS stream.
type TurnPublisher struct {
	client *Client
}

// NewTurnPublisher ensures the TURNS stream exists and returns a publisher.
func NewTurnPublisher(ctx context.Context, client *Client) (*TurnPublisher, error) {
	js := client.JetStream()

	if _, err := js.Stream(ctx, TurnStream); err != nil {
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        TurnStream,
			Subjects:    []string{fmt.Sprintf("%s.>", TurnSubjectPrefix)},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      30 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
			Replicas:    1,
			Compression: jetstream.S2Compression,
			Description: "Completed conversation turns",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create turn stream: %w", err)
		}
	}

	return &TurnPublisher{client: client}, nil
}

// Publish records one completed turn. Failures are returned for logging only;
// audit publishing must never fail a turn.
func (p *TurnPublisher) Publish(ctx context.Context, event *model.TurnEvent) error {
	subject := fmt.Sprintf("%s.%s.%s", TurnSubjectPrefix, threadKey(event.ThreadID), event.Intent)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}
	return nil
}
