package platform

import "github.com/vpgclub/clubbot/internal/model"

// Mention renders a user mention in message content
func Mention(u model.UserID) string {
	return "<@" + string(u) + ">"
}

// MentionRole renders a role mention in message content
func MentionRole(r model.RoleID) string {
	return "<@&" + string(r) + ">"
}

// MentionChannel renders a channel mention in message content
func MentionChannel(c model.ChannelID) string {
	return "<#" + string(c) + ">"
}
