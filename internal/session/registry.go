package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// AlreadyOpenError reports that the user already has a live workflow
// channel of this kind.
type AlreadyOpenError struct {
	Kind    model.WorkflowKind
	Channel model.ChannelID
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("%s channel already open: %s", e.Kind, e.Channel)
}

// Registry enforces "at most one open workflow channel per user" per
// workflow kind. It is memory-only: a restart loses all entries, and
// callers recover ownership from the tag embedded in the channel topic.
type Registry struct {
	mu     sync.Mutex
	client platform.Client
	open   map[model.WorkflowKind]map[model.UserID]model.ChannelID
}

// NewRegistry creates a registry backed by the given platform client,
// which is consulted to detect channels deleted behind our back.
func NewRegistry(client platform.Client) *Registry {
	return &Registry{
		client: client,
		open:   make(map[model.WorkflowKind]map[model.UserID]model.ChannelID),
	}
}

// Claim reserves the (user, kind) slot, failing when the user already has a
// live channel of this kind. An entry whose channel no longer exists is
// purged and the claim takes its place. The caller must Bind once the new
// channel is created, or Release on failure; the reservation is what keeps
// two near-simultaneous claims from both proceeding.
func (r *Registry) Claim(ctx context.Context, user model.UserID, kind model.WorkflowKind) error {
	r.mu.Lock()
	existing, ok := r.open[kind][user]
	if !ok {
		r.reserve(user, kind)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if existing == "" {
		// Reserved but not yet bound: a parallel claim is mid-setup.
		return &AlreadyOpenError{Kind: kind}
	}

	alive, err := r.client.ChannelExists(ctx, existing)
	if err != nil {
		return err
	}
	if alive {
		return &AlreadyOpenError{Kind: kind, Channel: existing}
	}

	// Stale entry: the channel vanished outside our bookkeeping.
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.open[kind][user]
	switch {
	case !ok:
		r.reserve(user, kind)
		return nil
	case cur == existing:
		r.open[kind][user] = ""
		return nil
	default:
		return &AlreadyOpenError{Kind: kind, Channel: cur}
	}
}

// reserve inserts the placeholder entry. Callers hold the lock.
func (r *Registry) reserve(user model.UserID, kind model.WorkflowKind) {
	if r.open[kind] == nil {
		r.open[kind] = make(map[model.UserID]model.ChannelID)
	}
	r.open[kind][user] = ""
}

// Bind records the channel for the (user, kind) pair
func (r *Registry) Bind(user model.UserID, kind model.WorkflowKind, channel model.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open[kind] == nil {
		r.open[kind] = make(map[model.UserID]model.ChannelID)
	}
	r.open[kind][user] = channel
}

// Release removes the entry for the (user, kind) pair. Idempotent.
func (r *Registry) Release(user model.UserID, kind model.WorkflowKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open[kind], user)
}

// Owner finds the user a channel belongs to by linear scan. Cardinality is
// tens of concurrent workflows at most.
func (r *Registry) Owner(channel model.ChannelID, kind model.WorkflowKind) (model.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for user, ch := range r.open[kind] {
		if ch == channel {
			return user, true
		}
	}
	return "", false
}
