package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Client adapts a discordgo session to the platform.Client interface.
// Everything is scoped to a single guild.
type Client struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps an open session for the given guild
func NewClient(session *discordgo.Session, guildID string, logger *slog.Logger) *Client {
	return &Client{session: session, guildID: guildID, logger: logger}
}

func (c *Client) SendMessage(ctx context.Context, channel model.ChannelID, msg platform.Message) (model.MessageID, error) {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{renderEmbed(msg.Embed)}
	}
	if components := renderComponents(msg); len(components) > 0 {
		send.Components = components
	}

	sent, err := c.session.ChannelMessageSendComplex(string(channel), send, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("sending message to %s: %w", channel, err)
	}
	return model.MessageID(sent.ID), nil
}

func (c *Client) DeleteMessage(ctx context.Context, channel model.ChannelID, message model.MessageID) error {
	err := c.session.ChannelMessageDelete(string(channel), string(message), discordgo.WithContext(ctx))
	if isNotFound(err) {
		return model.ErrMessageNotFound
	}
	return err
}

func (c *Client) DisableControls(ctx context.Context, channel model.ChannelID, message model.MessageID) error {
	empty := []discordgo.MessageComponent{}
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    string(channel),
		ID:         string(message),
		Components: &empty,
	}, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return model.ErrMessageNotFound
	}
	return err
}

// PurgeChannel bulk-deletes in pages of 100, the API ceiling per call
func (c *Client) PurgeChannel(ctx context.Context, channel model.ChannelID, limit int) (int, error) {
	deleted := 0
	for deleted < limit {
		page := limit - deleted
		if page > 100 {
			page = 100
		}
		msgs, err := c.session.ChannelMessages(string(channel), page, "", "", "", discordgo.WithContext(ctx))
		if err != nil {
			return deleted, fmt.Errorf("listing messages in %s: %w", channel, err)
		}
		if len(msgs) == 0 {
			break
		}
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		if err := c.session.ChannelMessagesBulkDelete(string(channel), ids, discordgo.WithContext(ctx)); err != nil {
			return deleted, fmt.Errorf("bulk delete in %s: %w", channel, err)
		}
		deleted += len(ids)
		if len(msgs) < page {
			break
		}
	}
	return deleted, nil
}

func (c *Client) AddReaction(ctx context.Context, channel model.ChannelID, message model.MessageID, emoji string) error {
	return c.session.MessageReactionAdd(string(channel), string(message), emoji, discordgo.WithContext(ctx))
}

func (c *Client) CreateChannel(ctx context.Context, req platform.ChannelRequest) (model.ChannelID, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// Deny @everyone; the guild ID doubles as the everyone role ID.
			ID:   c.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    c.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageMessages,
		},
	}
	for _, u := range req.Viewers {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    string(u),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	for _, r := range req.ViewerRoles {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    string(r),
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	ch, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             string(req.Category),
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(req.Reason))
	if err != nil {
		return "", fmt.Errorf("creating channel %q: %w", req.Name, err)
	}
	return model.ChannelID(ch.ID), nil
}

func (c *Client) DeleteChannel(ctx context.Context, channel model.ChannelID, reason string) error {
	_, err := c.session.ChannelDelete(string(channel), discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if isNotFound(err) {
		return model.ErrChannelNotFound
	}
	return err
}

func (c *Client) ChannelExists(ctx context.Context, channel model.ChannelID) (bool, error) {
	if ch, err := c.session.State.Channel(string(channel)); err == nil && ch != nil {
		return true, nil
	}
	_, err := c.session.Channel(string(channel), discordgo.WithContext(ctx))
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) ChannelTopic(ctx context.Context, channel model.ChannelID) (string, error) {
	ch, err := c.session.Channel(string(channel), discordgo.WithContext(ctx))
	if isNotFound(err) {
		return "", model.ErrChannelNotFound
	}
	if err != nil {
		return "", err
	}
	return ch.Topic, nil
}

func (c *Client) Member(ctx context.Context, user model.UserID) (*platform.Member, error) {
	m, err := c.session.State.Member(c.guildID, string(user))
	if err != nil {
		m, err = c.session.GuildMember(c.guildID, string(user), discordgo.WithContext(ctx))
		if isNotFound(err) {
			return nil, model.ErrMemberNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return c.translateMember(m), nil
}

func (c *Client) MemberCount(ctx context.Context) (int, error) {
	if g, err := c.session.State.Guild(c.guildID); err == nil && g.MemberCount > 0 {
		return g.MemberCount, nil
	}
	g, err := c.session.GuildWithCounts(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return g.ApproximateMemberCount, nil
}

func (c *Client) AddRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error {
	err := c.session.GuildMemberRoleAdd(c.guildID, string(user), string(role),
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if isNotFound(err) {
		return model.ErrMemberNotFound
	}
	return err
}

func (c *Client) RemoveRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error {
	err := c.session.GuildMemberRoleRemove(c.guildID, string(user), string(role),
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if isNotFound(err) {
		return model.ErrMemberNotFound
	}
	return err
}

func (c *Client) Kick(ctx context.Context, user model.UserID, reason string) error {
	err := c.session.GuildMemberDelete(c.guildID, string(user),
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if isNotFound(err) {
		return model.ErrMemberNotFound
	}
	return err
}

func (c *Client) DirectMessage(ctx context.Context, user model.UserID, content string) error {
	dm, err := c.session.UserChannelCreate(string(user), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM with %s: %w", user, err)
	}
	_, err = c.session.ChannelMessageSend(dm.ID, content, discordgo.WithContext(ctx))
	return err
}

func (c *Client) RolePosition(ctx context.Context, role model.RoleID) (int, error) {
	r, err := c.session.State.Role(c.guildID, string(role))
	if err == nil {
		return r.Position, nil
	}
	roles, err := c.session.GuildRoles(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	for _, r := range roles {
		if r.ID == string(role) {
			return r.Position, nil
		}
	}
	return 0, fmt.Errorf("role %s not found", role)
}

func (c *Client) BotTopRolePosition(ctx context.Context) (int, error) {
	me, err := c.Member(ctx, model.UserID(c.session.State.User.ID))
	if err != nil {
		return 0, err
	}
	top := 0
	for _, r := range me.Roles {
		pos, err := c.RolePosition(ctx, r)
		if err != nil {
			continue
		}
		if pos > top {
			top = pos
		}
	}
	return top, nil
}

func (c *Client) ReplyEphemeral(ctx context.Context, inter platform.Interaction, content string) error {
	return c.session.InteractionRespond(&discordgo.Interaction{
		ID:    inter.ID,
		Token: inter.Token,
	}, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
}

func (c *Client) Acknowledge(ctx context.Context, inter platform.Interaction) error {
	return c.session.InteractionRespond(&discordgo.Interaction{
		ID:    inter.ID,
		Token: inter.Token,
	}, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
}

// translateMember converts a guild member to the platform shape. Admin is
// the Administrator permission on any of the member's roles, or guild
// ownership.
func (c *Client) translateMember(m *discordgo.Member) *platform.Member {
	user := m.User
	display := m.Nick
	if display == "" {
		display = user.GlobalName
	}
	if display == "" {
		display = user.Username
	}

	roles := make([]model.RoleID, 0, len(m.Roles))
	for _, r := range m.Roles {
		roles = append(roles, model.RoleID(r))
	}

	return &platform.Member{
		ID:          model.UserID(user.ID),
		Username:    user.Username,
		DisplayName: display,
		AvatarURL:   user.AvatarURL(""),
		Roles:       roles,
		JoinedAt:    m.JoinedAt,
		IsBot:       user.Bot,
		IsAdmin:     c.isAdmin(m),
	}
}

func (c *Client) isAdmin(m *discordgo.Member) bool {
	g, err := c.session.State.Guild(c.guildID)
	if err != nil {
		return false
	}
	if g.OwnerID == m.User.ID {
		return true
	}
	for _, roleID := range m.Roles {
		r, err := c.session.State.Role(c.guildID, roleID)
		if err != nil {
			continue
		}
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}

func renderEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Image != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.Image}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if e.Timestamp != nil {
		out.Timestamp = e.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}

func renderComponents(msg platform.Message) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	if len(msg.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range msg.Buttons {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.ButtonStyle(b.Style),
				CustomID: b.ID,
				Disabled: b.Disabled,
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	if msg.Select != nil {
		minValues := msg.Select.MinValues
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    msg.Select.ID,
			Placeholder: msg.Select.Placeholder,
			MinValues:   &minValues,
			MaxValues:   msg.Select.MaxValues,
		}
		for _, o := range msg.Select.Options {
			opt := discordgo.SelectMenuOption{Label: o.Label, Value: o.Value}
			if o.Emoji != "" {
				opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
			}
			menu.Options = append(menu.Options, opt)
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}})
	}
	return rows
}

// isNotFound reports whether err is a 404 from the REST API
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		return restErr.Response.StatusCode == 404
	}
	return strings.Contains(err.Error(), "404")
}
