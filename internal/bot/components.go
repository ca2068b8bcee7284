package bot

import (
	"context"
	"sync"

	"github.com/vpgclub/clubbot/internal/platform"
)

// ComponentHandler reacts to a click on a persistent control
type ComponentHandler func(ctx context.Context, inter platform.Interaction)

// ComponentRegistry maps durable custom IDs to handlers. Registration is
// idempotent: re-registering an ID replaces the handler instead of stacking
// a duplicate, so re-attachment after every gateway ready is safe.
type ComponentRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ComponentHandler
}

// NewComponentRegistry creates an empty registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{handlers: make(map[string]ComponentHandler)}
}

// Register binds a handler to a custom ID
func (r *ComponentRegistry) Register(id string, h ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// Dispatch routes an interaction to its handler and reports whether one
// was found.
func (r *ComponentRegistry) Dispatch(ctx context.Context, inter platform.Interaction) bool {
	r.mu.RLock()
	h, ok := r.handlers[inter.ComponentID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h(ctx, inter)
	return true
}

// Registered reports whether a handler is bound to the ID
func (r *ComponentRegistry) Registered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}
