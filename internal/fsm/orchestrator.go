package fsm

import (
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned when an event is not valid from a
// context's current state.
type ErrInvalidTransition struct {
	From  State
	Event Event
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: cannot apply %s from state %s", e.Event, e.From)
}

// Context is the per-session FSM instance: a current state plus whatever
// metadata the orchestrator layer wants to stash alongside it (plan id,
// last error, retry count). Context is not safe for concurrent use on its
// own; callers reach it only through Orchestrator, which serializes access.
type Context struct {
	SessionID string
	State     State
	Metadata  map[string]any
	UpdatedAt time.Time
}

// Reset returns the context to IDLE and clears metadata, mirroring the
// RESET event but without requiring the context to be in COMPLETED first.
// Used when a session is explicitly torn down and its slot recycled.
func (c *Context) reset() {
	c.State = StateIdle
	c.Metadata = make(map[string]any)
	c.UpdatedAt = time.Now()
}

// Orchestrator owns the process-global map of per-session FSM contexts. A
// single Orchestrator instance is shared by every stream handler; callers
// are expected to hold the session's lock (see internal/locking) around any
// sequence of Transition calls that must appear atomic to an observer.
type Orchestrator struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// New creates an empty Orchestrator.
func New() *Orchestrator {
	return &Orchestrator{
		contexts: make(map[string]*Context),
	}
}

// ContextFor returns the context for a session, creating it in IDLE on
// first access.
func (o *Orchestrator) ContextFor(sessionID string) *Context {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, ok := o.contexts[sessionID]
	if !ok {
		ctx = &Context{
			SessionID: sessionID,
			State:     StateIdle,
			Metadata:  make(map[string]any),
			UpdatedAt: time.Now(),
		}
		o.contexts[sessionID] = ctx
	}
	return ctx
}

// CurrentState returns a session's current state without creating a
// context if one does not already exist.
func (o *Orchestrator) CurrentState(sessionID string) (State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ctx, ok := o.contexts[sessionID]
	if !ok {
		return "", false
	}
	return ctx.State, true
}

// ValidateTransition is the pure predicate form: does the table allow this
// event from the session's current state. It does not mutate anything.
func (o *Orchestrator) ValidateTransition(sessionID string, event Event) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	state := StateIdle
	if ctx, found := o.contexts[sessionID]; found {
		state = ctx.State
	}
	_, ok := ValidTransition(state, event)
	return ok
}

// Transition applies event to the session's context. On success it returns
// the new state; metadata entries are merged (not replaced) into the
// context's metadata map. On failure it returns ErrInvalidTransition and
// leaves the context untouched.
func (o *Orchestrator) Transition(sessionID string, event Event, metadata map[string]any) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, ok := o.contexts[sessionID]
	if !ok {
		ctx = &Context{SessionID: sessionID, State: StateIdle, Metadata: make(map[string]any)}
		o.contexts[sessionID] = ctx
	}

	to, ok := ValidTransition(ctx.State, event)
	if !ok {
		return ctx.State, &ErrInvalidTransition{From: ctx.State, Event: event}
	}

	for k, v := range metadata {
		ctx.Metadata[k] = v
	}
	ctx.State = to
	ctx.UpdatedAt = time.Now()

	return ctx.State, nil
}

// AllowedEvents returns the events valid from a session's current state.
func (o *Orchestrator) AllowedEvents(sessionID string) []Event {
	ctx := o.ContextFor(sessionID)
	o.mu.RLock()
	defer o.mu.RUnlock()
	return AllowedEvents(ctx.State)
}

// Reset drives a session back to IDLE unconditionally. Used when a session
// is abandoned or explicitly restarted; it does not go through the RESET
// event/table check because it must also work from non-COMPLETED states
// during cleanup.
func (o *Orchestrator) Reset(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, ok := o.contexts[sessionID]
	if !ok {
		return
	}
	ctx.reset()
}

// Forget removes a session's context entirely, e.g. once its conversation
// has been deleted.
func (o *Orchestrator) Forget(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.contexts, sessionID)
}
