// Package state persists per-thread conversation state.
package state

import (
	"context"
	"errors"

	"github.com/concierge-ai/assistant-platform/internal/model"
)

// ErrNotFound is returned when a thread has no stored state yet.
var ErrNotFound = errors.New("thread state not found")

// Store is the durable per-thread state store. Implementations must make
// Save atomic per key; callers serialize load-mutate-save per thread.
type Store interface {
	// Load returns the stored state for a thread, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*model.ThreadState, error)

	// Save writes the state back, keyed by state.ThreadID.
	Save(ctx context.Context, st *model.ThreadState) error

	// Clear resets a thread to its default state. Best-effort: a backend
	// without delete support may no-op.
	Clear(ctx context.Context, threadID string) error
}
