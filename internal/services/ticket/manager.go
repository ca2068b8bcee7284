package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/session"
)

// Durable component IDs for the persistent controls
const (
	CreateButtonID = "ticket:create"
	CloseButtonID  = "ticket:close"
)

// Config holds the ticket workflow settings
type Config struct {
	CreationChannel model.ChannelID
	Category        model.ChannelID
	LogChannel      model.ChannelID // optional
	GraceDelay      time.Duration
}

// Manager runs the support-ticket workflow: one private channel per user,
// closed by the opener or staff, deleted after a grace delay.
type Manager struct {
	client   platform.Client
	registry *session.Registry
	guard    *session.InflightGuard
	caps     *capability.Set
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
}

// NewManager creates a ticket manager
func NewManager(client platform.Client, registry *session.Registry, guard *session.InflightGuard, caps *capability.Set, clk clock.Clock, cfg Config, logger *slog.Logger) *Manager {
	if cfg.GraceDelay == 0 {
		cfg.GraceDelay = 10 * time.Second
	}
	return &Manager{
		client:   client,
		registry: registry,
		guard:    guard,
		caps:     caps,
		clock:    clk,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetupPrompt posts the ticket-creation button message. Admin only.
func (m *Manager) SetupPrompt(ctx context.Context, actor *platform.Member) error {
	if !m.caps.Has(actor, capability.Admin) {
		return model.ErrNotAuthorized
	}

	msg := platform.Message{
		Embed: &platform.Embed{
			Title:       "Support — open a ticket",
			Description: "Need help, have a question or something to report?\n\nClick the button below to open a private channel where staff can assist you.",
			Footer:      "Please do not abuse this system.",
			Color:       0x00008b,
		},
		Buttons: []platform.Button{
			{ID: CreateButtonID, Label: "Open a ticket", Style: platform.ButtonPrimary, Emoji: "➕"},
		},
	}
	if _, err := m.client.SendMessage(ctx, m.cfg.CreationChannel, msg); err != nil {
		return err
	}
	m.logger.Info("ticket prompt posted", slog.String("actor", string(actor.ID)))
	return nil
}

// Open handles a click on the create button: claims the registry, creates
// the private channel and attaches the close control. All failures are
// reported ephemerally to the clicking user.
func (m *Manager) Open(ctx context.Context, inter platform.Interaction) {
	user := inter.User

	if err := m.registry.Claim(ctx, user, model.WorkflowTicket); err != nil {
		var open *session.AlreadyOpenError
		switch {
		case errors.As(err, &open) && open.Channel != "":
			m.replyEphemeral(ctx, inter, "You already have an open ticket: "+platform.MentionChannel(open.Channel))
		case errors.As(err, &open):
			m.replyEphemeral(ctx, inter, "Your ticket is still being created.")
		default:
			m.logger.Error("ticket claim failed", slog.String("user", string(user)), slog.String("error", err.Error()))
			m.replyEphemeral(ctx, inter, "Something went wrong opening your ticket.")
		}
		return
	}

	member, err := m.client.Member(ctx, user)
	if err != nil {
		m.registry.Release(user, model.WorkflowTicket)
		m.replyEphemeral(ctx, inter, "Something went wrong opening your ticket.")
		return
	}

	tag := model.ChannelTag{Kind: model.WorkflowTicket, Subject: user, Creator: user}
	channel, err := m.client.CreateChannel(ctx, platform.ChannelRequest{
		Name:     platform.WorkflowChannelName("ticket", member.Username, user),
		Topic:    fmt.Sprintf("Ticket for %s. %s", member.Username, tag.Format()),
		Category: m.cfg.Category,
		Viewers:  []model.UserID{user},
		Reason:   fmt.Sprintf("Ticket opened by %s (%s)", member.Username, user),
	})
	if err != nil {
		m.registry.Release(user, model.WorkflowTicket)
		m.logger.Error("ticket channel creation failed", slog.String("user", string(user)), slog.String("error", err.Error()))
		m.replyEphemeral(ctx, inter, "Could not create the ticket channel.")
		return
	}
	m.registry.Bind(user, model.WorkflowTicket, channel)

	welcome := platform.Message{
		Embed: &platform.Embed{
			Title:       "Ticket opened by " + member.DisplayName,
			Description: fmt.Sprintf("Welcome %s!\n\nDescribe your problem or question. Use the button below to close the ticket when you are done.", platform.Mention(user)),
			Color:       0x5865f2,
		},
		Buttons: []platform.Button{
			{ID: CloseButtonID, Label: "Close ticket", Style: platform.ButtonDanger, Emoji: "🔒"},
		},
	}
	if _, err := m.client.SendMessage(ctx, channel, welcome); err != nil {
		m.logger.Error("ticket welcome message failed", slog.String("channel", string(channel)), slog.String("error", err.Error()))
	}

	m.replyEphemeral(ctx, inter, "Your ticket has been created: "+platform.MentionChannel(channel))
	m.logTicket(ctx, "📝 Ticket opened", fmt.Sprintf("%s opened %s", platform.Mention(user), platform.MentionChannel(channel)))
	m.logger.Info("ticket opened",
		slog.String("run_id", uuid.NewString()),
		slog.String("user", string(user)),
		slog.String("channel", string(channel)))
}

// CloseFromInteraction handles a click on the close button
func (m *Manager) CloseFromInteraction(ctx context.Context, inter platform.Interaction) {
	if err := m.Close(ctx, inter.Member, inter.Channel, inter.Message, ""); err != nil {
		switch {
		case errors.Is(err, model.ErrNotAuthorized):
			m.replyEphemeral(ctx, inter, "Only the ticket opener or staff can close this ticket.")
		case errors.Is(err, model.ErrTagNotFound):
			m.replyEphemeral(ctx, inter, "This channel is not a ticket.")
		case errors.Is(err, model.ErrDecisionInFlight):
			m.replyEphemeral(ctx, inter, "This ticket is already being closed.")
		default:
			m.replyEphemeral(ctx, inter, "Something went wrong closing the ticket.")
		}
		return
	}
	// The channel is gone; nothing left to acknowledge.
}

// Close resolves a ticket: authorization, announcement, grace delay,
// deletion, registry release. Exactly one close wins a double click.
// Channels that carry no ticket tag and no registry entry are refused
// outright, so the command cannot delete an ordinary channel. The optional
// control is the close-button message to grey out; the optional reason is
// echoed in the announcement and the audit log.
func (m *Manager) Close(ctx context.Context, actor *platform.Member, channel model.ChannelID, control model.MessageID, reason string) error {
	if actor == nil {
		return model.ErrNotAuthorized
	}

	opener, err := m.resolveOpener(ctx, channel)
	if err != nil {
		return err
	}

	isStaff := m.caps.Has(actor, capability.Staff) || m.caps.Has(actor, capability.Admin)
	if actor.ID != opener && !isStaff {
		return model.ErrNotAuthorized
	}

	if !m.guard.TryAcquire(channel) {
		return model.ErrDecisionInFlight
	}
	defer m.guard.Release(channel)

	if control != "" {
		if err := m.client.DisableControls(ctx, channel, control); err != nil {
			m.logger.Warn("close control disable failed", slog.String("error", err.Error()))
		}
	}

	announcement := fmt.Sprintf("🔒 Ticket closed by %s.", platform.Mention(actor.ID))
	if reason != "" {
		announcement += " Reason: " + reason + "."
	}
	announcement += fmt.Sprintf(" This channel will be deleted in %d seconds.", int(m.cfg.GraceDelay.Seconds()))
	if _, err := m.client.SendMessage(ctx, channel, platform.Text(announcement)); err != nil {
		m.logger.Warn("ticket close announcement failed", slog.String("error", err.Error()))
	}

	if err := m.clock.Sleep(ctx, m.cfg.GraceDelay); err != nil {
		return err
	}

	audit := fmt.Sprintf("Ticket closed by %s", actor.ID)
	if reason != "" {
		audit += ": " + reason
	}
	if err := m.client.DeleteChannel(ctx, channel, audit); err != nil {
		if errors.Is(err, model.ErrChannelNotFound) {
			m.logger.Warn("ticket channel already gone", slog.String("channel", string(channel)))
		} else {
			return err
		}
	}

	m.registry.Release(opener, model.WorkflowTicket)

	closed := fmt.Sprintf("Ticket of %s closed by %s", platform.Mention(opener), platform.Mention(actor.ID))
	if reason != "" {
		closed += "\nReason: " + reason
	}
	m.logTicket(ctx, "🔒 Ticket closed", closed)
	m.logger.Info("ticket closed",
		slog.String("channel", string(channel)),
		slog.String("actor", string(actor.ID)))
	return nil
}

// resolveOpener recovers who a ticket belongs to. The tag in the channel
// topic wins; the registry is only a cache consulted when the topic is
// unreadable.
func (m *Manager) resolveOpener(ctx context.Context, channel model.ChannelID) (model.UserID, error) {
	topic, err := m.client.ChannelTopic(ctx, channel)
	if err == nil {
		if tag, terr := model.ParseTag(topic); terr == nil && tag.Kind == model.WorkflowTicket {
			return tag.Subject, nil
		}
	}

	if owner, ok := m.registry.Owner(channel, model.WorkflowTicket); ok {
		return owner, nil
	}
	return "", model.ErrTagNotFound
}

func (m *Manager) replyEphemeral(ctx context.Context, inter platform.Interaction, content string) {
	if err := m.client.ReplyEphemeral(ctx, inter, content); err != nil {
		m.logger.Warn("ephemeral reply failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) logTicket(ctx context.Context, title, description string) {
	if m.cfg.LogChannel == "" {
		return
	}
	msg := platform.Message{Embed: &platform.Embed{Title: title, Description: description, Color: 0x2ecc71}}
	if _, err := m.client.SendMessage(ctx, m.cfg.LogChannel, msg); err != nil {
		m.logger.Warn("ticket log message failed", slog.String("error", err.Error()))
	}
}
