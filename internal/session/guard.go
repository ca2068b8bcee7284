package session

import (
	"sync"

	"github.com/vpgclub/clubbot/internal/model"
)

// InflightGuard is the per-channel "a terminal action is already being
// processed" flag. It turns a double click on a terminal control into a
// rejection instead of a double-applied kick or deletion.
type InflightGuard struct {
	mu       sync.Mutex
	inflight map[model.ChannelID]struct{}
}

// NewInflightGuard creates an empty guard
func NewInflightGuard() *InflightGuard {
	return &InflightGuard{inflight: make(map[model.ChannelID]struct{})}
}

// TryAcquire marks the channel's terminal action as in flight. It reports
// false if one is already running.
func (g *InflightGuard) TryAcquire(channel model.ChannelID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[channel]; busy {
		return false
	}
	g.inflight[channel] = struct{}{}
	return true
}

// Release clears the flag. Callers defer this immediately after a
// successful TryAcquire so it runs on every exit path.
func (g *InflightGuard) Release(channel model.ChannelID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, channel)
}
