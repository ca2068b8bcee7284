package platform

import (
	"context"

	"github.com/vpgclub/clubbot/internal/model"
)

// MessageEvent is an inbound guild message
type MessageEvent struct {
	ID        model.MessageID
	Channel   model.ChannelID
	Author    model.UserID
	AuthorBot bool
	Content   string
	Member    *Member
}

// ReactionEvent is a reaction added to a message
type ReactionEvent struct {
	Channel model.ChannelID
	Message model.MessageID
	User    model.UserID
	Emoji   string
}

// Interaction is a component click or selection. ID and Token are opaque
// handles used to reply; ComponentID routes to the owning control.
type Interaction struct {
	ID          string
	Token       string
	ComponentID string
	Values      []string
	User        model.UserID
	Member      *Member
	Channel     model.ChannelID
	Message     model.MessageID
}

// MemberEvent is a guild join or leave
type MemberEvent struct {
	Member      Member
	MemberCount int
}

// StreamInfo describes a live stream activity
type StreamInfo struct {
	Title    string
	URL      string
	Details  string
	Game     string
	Platform string
}

// PresenceEvent carries the streaming state after a presence change.
// Stream is nil when the member is not streaming.
type PresenceEvent struct {
	User   model.UserID
	Stream *StreamInfo
}

// Handlers receives gateway events. Nil fields are skipped.
type Handlers struct {
	Ready          func(ctx context.Context)
	Message        func(ctx context.Context, ev MessageEvent)
	Interaction    func(ctx context.Context, inter Interaction)
	ReactionAdd    func(ctx context.Context, ev ReactionEvent)
	MemberJoin     func(ctx context.Context, ev MemberEvent)
	MemberLeave    func(ctx context.Context, ev MemberEvent)
	PresenceUpdate func(ctx context.Context, ev PresenceEvent)
}

// Gateway is the live event connection to the platform
type Gateway interface {
	// Run connects and dispatches events until ctx is cancelled.
	Run(ctx context.Context, h Handlers) error
}
