package state

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]byte)}
}

// Load returns the stored state for a thread, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, threadID string) (*model.ThreadState, error) {
	s.mu.RLock()
	data, ok := s.threads[threadID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var st model.ThreadState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save writes the state back keyed by thread id.
func (s *MemoryStore) Save(ctx context.Context, st *model.ThreadState) error {
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.threads[st.ThreadID] = data
	s.mu.Unlock()
	return nil
}

// Clear removes a thread's state.
func (s *MemoryStore) Clear(ctx context.Context, threadID string) error {
	s.mu.Lock()
	delete(s.threads, threadID)
	s.mu.Unlock()
	return nil
}
