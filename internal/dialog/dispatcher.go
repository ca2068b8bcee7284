package dialog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// ErrWaiterExists reports a second concurrent wait for the same
// (channel, user) pair. Dialog runs are single-flight per user.
var ErrWaiterExists = errors.New("a dialog is already waiting on this channel and user")

type msgKey struct {
	channel model.ChannelID
	user    model.UserID
}

type selectionWaiter struct {
	user model.UserID
	min  int
	max  int
	ch   chan []string
}

// Dispatcher routes inbound gateway events to suspended dialog steps.
// Each wait is a bounded-timeout suspension returning the response
// directly, so no mutable state is shared with the waiting code.
type Dispatcher struct {
	mu     sync.Mutex
	client platform.Client
	logger *slog.Logger

	msgWaiters map[msgKey]chan platform.MessageEvent
	selWaiters map[string]*selectionWaiter
}

// NewDispatcher creates a dispatcher replying through the given client
func NewDispatcher(client platform.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:     client,
		logger:     logger,
		msgWaiters: make(map[msgKey]chan platform.MessageEvent),
		selWaiters: make(map[string]*selectionWaiter),
	}
}

// AwaitMessage waits for the next message authored by user in channel.
// It returns model.ErrDialogTimeout when the timeout elapses first.
func (d *Dispatcher) AwaitMessage(ctx context.Context, channel model.ChannelID, user model.UserID, timeout time.Duration) (platform.MessageEvent, error) {
	key := msgKey{channel: channel, user: user}
	ch := make(chan platform.MessageEvent, 1)

	d.mu.Lock()
	if _, exists := d.msgWaiters[key]; exists {
		d.mu.Unlock()
		return platform.MessageEvent{}, ErrWaiterExists
	}
	d.msgWaiters[key] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.msgWaiters, key)
		d.mu.Unlock()
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case ev := <-ch:
		return ev, nil
	case <-t.C:
		return platform.MessageEvent{}, model.ErrDialogTimeout
	case <-ctx.Done():
		return platform.MessageEvent{}, ctx.Err()
	}
}

// AwaitSelection waits for a selection on the control with the given
// component ID, made by user, with between min and max values.
func (d *Dispatcher) AwaitSelection(ctx context.Context, componentID string, user model.UserID, min, max int, timeout time.Duration) ([]string, error) {
	ch := make(chan []string, 1)

	d.mu.Lock()
	if _, exists := d.selWaiters[componentID]; exists {
		d.mu.Unlock()
		return nil, ErrWaiterExists
	}
	d.selWaiters[componentID] = &selectionWaiter{user: user, min: min, max: max, ch: ch}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.selWaiters, componentID)
		d.mu.Unlock()
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case values := <-ch:
		return values, nil
	case <-t.C:
		return nil, model.ErrDialogTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleMessage delivers a message to a matching waiter. It reports
// whether the event was consumed by a dialog.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev platform.MessageEvent) bool {
	if ev.AuthorBot {
		return false
	}

	d.mu.Lock()
	ch, ok := d.msgWaiters[msgKey{channel: ev.Channel, user: ev.Author}]
	d.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- ev:
	default:
		// Waiter already satisfied; later messages are not dialog replies.
		return false
	}
	return true
}

// HandleInteraction delivers a selection to a matching waiter. Selections
// by the wrong user, or outside the cardinality bounds, are rejected with
// an ephemeral notice without completing the step.
func (d *Dispatcher) HandleInteraction(ctx context.Context, inter platform.Interaction) bool {
	d.mu.Lock()
	w, ok := d.selWaiters[inter.ComponentID]
	d.mu.Unlock()
	if !ok {
		return false
	}

	if inter.User != w.user {
		if err := d.client.ReplyEphemeral(ctx, inter, "This menu is not yours."); err != nil {
			d.logger.Warn("could not send ephemeral rejection", slog.String("error", err.Error()))
		}
		return true
	}

	if len(inter.Values) < w.min || len(inter.Values) > w.max {
		if err := d.client.ReplyEphemeral(ctx, inter, "Invalid number of choices, try again."); err != nil {
			d.logger.Warn("could not send ephemeral rejection", slog.String("error", err.Error()))
		}
		return true
	}

	if err := d.client.Acknowledge(ctx, inter); err != nil {
		d.logger.Warn("could not acknowledge selection", slog.String("error", err.Error()))
	}

	select {
	case w.ch <- inter.Values:
	default:
	}
	return true
}
