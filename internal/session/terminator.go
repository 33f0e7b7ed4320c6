package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// TerminationEvent is delivered to subscribers when the session ends without
// an explicit logout. Hosts react by sending the user back to login.
type TerminationEvent struct {
	Cause error
	At    time.Time
}

// Terminator clears credentials and notifies subscribers. Repeated triggers
// collapse into one event until the session is re-established, either by a
// local Reset or by a pair another console wrote into the shared store.
type Terminator struct {
	store   tokenstore.TokenStore
	metrics *instruments

	mu          sync.Mutex
	terminated  bool
	cleared     bool // the terminating Clear succeeded
	nextID      uint64
	subscribers map[uint64]func(TerminationEvent)
}

func newTerminator(store tokenstore.TokenStore, metrics *instruments) *Terminator {
	return &Terminator{
		store:       store,
		metrics:     metrics,
		subscribers: make(map[uint64]func(TerminationEvent)),
	}
}

// Terminate clears both tokens and emits one TerminationEvent. It reports
// whether this call performed the termination.
func (t *Terminator) Terminate(ctx context.Context, cause error) bool {
	t.mu.Lock()
	if t.terminated && !t.rearmLocked(ctx) {
		t.mu.Unlock()
		return false
	}
	t.terminated = true

	// Cleared under the lock so a concurrent Reset cannot interleave.
	err := t.store.Clear(ctx)
	t.cleared = err == nil
	if err != nil {
		slog.ErrorContext(ctx, "failed to clear credentials on termination", "error", err)
	}

	subscribers := make([]func(TerminationEvent), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subscribers = append(subscribers, fn)
	}
	t.mu.Unlock()

	t.metrics.terminations.Add(ctx, 1)
	slog.WarnContext(ctx, "session terminated", "cause", cause)

	event := TerminationEvent{Cause: cause, At: time.Now()}
	for _, fn := range subscribers {
		fn(event)
	}
	return true
}

// Reset stores pair (clearing storage when it is empty) and re-arms termination.
func (t *Terminator) Reset(ctx context.Context, pair tokenstore.CredentialPair) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if pair.IsZero() {
		err = t.store.Clear(ctx)
	} else {
		err = t.store.Set(ctx, pair)
	}
	if err != nil {
		return err
	}

	t.terminated = false
	return nil
}

// Terminated reports whether the session is still terminated. A pair written
// to the store since termination re-arms it.
func (t *Terminator) Terminated(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminated && !t.rearmLocked(ctx)
}

// rearmLocked clears the latch when storage holds credentials again. A
// successful termination leaves the store empty, so a non-empty pair was
// written by a login elsewhere. Read-only stores never re-arm. t.mu must be held.
func (t *Terminator) rearmLocked(ctx context.Context) bool {
	if !t.cleared {
		return false
	}
	pair, err := t.store.Get(ctx)
	if err != nil || pair.IsZero() {
		return false
	}
	slog.DebugContext(ctx, "credentials stored since termination, session re-armed")
	t.terminated = false
	return true
}

// Subscribe registers fn for termination events. The returned function removes it.
// fn runs on the goroutine that triggered termination and must not block.
func (t *Terminator) Subscribe(fn func(TerminationEvent)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}
