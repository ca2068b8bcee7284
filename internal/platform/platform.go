package platform

import (
	"context"

	"github.com/vpgclub/clubbot/internal/model"
)

// Client is the narrow surface of the chat platform the bot calls. The
// gateway connection itself, rate limiting and rendering all live behind
// this interface; workflow code never imports the SDK directly.
type Client interface {
	// Messages
	SendMessage(ctx context.Context, channel model.ChannelID, msg Message) (model.MessageID, error)
	DeleteMessage(ctx context.Context, channel model.ChannelID, message model.MessageID) error
	// DisableControls strips the interactive components from a message,
	// leaving its content and embeds in place.
	DisableControls(ctx context.Context, channel model.ChannelID, message model.MessageID) error
	// PurgeChannel bulk-deletes up to limit recent messages and reports how
	// many were removed.
	PurgeChannel(ctx context.Context, channel model.ChannelID, limit int) (int, error)
	AddReaction(ctx context.Context, channel model.ChannelID, message model.MessageID, emoji string) error

	// Channels
	CreateChannel(ctx context.Context, req ChannelRequest) (model.ChannelID, error)
	DeleteChannel(ctx context.Context, channel model.ChannelID, reason string) error
	ChannelExists(ctx context.Context, channel model.ChannelID) (bool, error)
	// ChannelTopic returns model.ErrChannelNotFound for vanished channels.
	ChannelTopic(ctx context.Context, channel model.ChannelID) (string, error)

	// Members and roles
	Member(ctx context.Context, user model.UserID) (*Member, error)
	MemberCount(ctx context.Context) (int, error)
	AddRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error
	RemoveRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error
	Kick(ctx context.Context, user model.UserID, reason string) error
	DirectMessage(ctx context.Context, user model.UserID, content string) error

	// Role hierarchy. Positions are the platform's ordering; a higher
	// position outranks a lower one.
	RolePosition(ctx context.Context, role model.RoleID) (int, error)
	BotTopRolePosition(ctx context.Context) (int, error)

	// Interaction replies
	ReplyEphemeral(ctx context.Context, inter Interaction, content string) error
	// Acknowledge consumes an interaction without a visible reply.
	Acknowledge(ctx context.Context, inter Interaction) error
}

// ChannelRequest describes a private text channel to create. Viewer lists
// are granted access on top of a deny-all default.
type ChannelRequest struct {
	Name        string
	Topic       string
	Category    model.ChannelID
	Viewers     []model.UserID
	ViewerRoles []model.RoleID
	Reason      string
}

// BotOutranks reports whether the bot's top role sits above every given role.
func BotOutranks(ctx context.Context, c Client, roles ...model.RoleID) (bool, error) {
	top, err := c.BotTopRolePosition(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		pos, err := c.RolePosition(ctx, r)
		if err != nil {
			return false, err
		}
		if top <= pos {
			return false, nil
		}
	}
	return true, nil
}

// BotOutranksMember reports whether the bot's top role sits above the
// member's highest role. A member with no roles is always outranked.
func BotOutranksMember(ctx context.Context, c Client, m *Member) (bool, error) {
	top, err := c.BotTopRolePosition(ctx)
	if err != nil {
		return false, err
	}
	highest := -1
	for _, r := range m.Roles {
		pos, err := c.RolePosition(ctx, r)
		if err != nil {
			continue
		}
		if pos > highest {
			highest = pos
		}
	}
	return top > highest, nil
}
