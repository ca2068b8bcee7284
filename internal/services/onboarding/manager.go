package onboarding

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/storage"
)

// acceptEmoji is the reaction that marks rules acceptance
const acceptEmoji = "✅"

// Config holds the onboarding settings
type Config struct {
	RulesChannel        model.ChannelID
	RegistrationChannel model.ChannelID
}

// Manager handles the front door: the rules message, the acceptance
// reaction that grants the verified role, and the newcomer role on join.
type Manager struct {
	client platform.Client
	store  storage.Storage
	caps   *capability.Set
	cfg    Config
	logger *slog.Logger
}

// NewManager creates an onboarding manager
func NewManager(client platform.Client, store storage.Storage, caps *capability.Set, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		client: client,
		store:  store,
		caps:   caps,
		cfg:    cfg,
		logger: logger,
	}
}

// PostRules (re)posts the rules message: the previous one is deleted if it
// still exists, the embed goes up with the acceptance reaction pre-added,
// and the new message ID is persisted so acceptance survives restarts.
// Admin only.
func (m *Manager) PostRules(ctx context.Context, actor *platform.Member) (model.MessageID, error) {
	if !m.caps.Has(actor, capability.Admin) {
		return "", model.ErrNotAuthorized
	}

	if old, err := m.store.RulesMessage(ctx); err == nil && old != "" {
		if derr := m.client.DeleteMessage(ctx, m.cfg.RulesChannel, old); derr != nil {
			m.logger.Warn("old rules message not deleted", slog.String("message", string(old)), slog.String("error", derr.Error()))
		}
	}

	embed := &platform.Embed{
		Title: "📜 Rules and Introduction 📜",
		Description: "Welcome to the server!\n\n" +
			"Respect each other, keep the channels on topic, and follow staff instructions.\n\n" +
			"**If you agree with these points and want to continue, react with " + acceptEmoji + " to this message.**",
		Color:  0x3498db,
		Footer: "Winning above all!",
	}
	id, err := m.client.SendMessage(ctx, m.cfg.RulesChannel, platform.Message{Embed: embed})
	if err != nil {
		return "", err
	}
	if err := m.client.AddReaction(ctx, m.cfg.RulesChannel, id, acceptEmoji); err != nil {
		m.logger.Warn("could not pre-add acceptance reaction", slog.String("error", err.Error()))
	}
	if err := m.store.SetRulesMessage(ctx, id); err != nil {
		return "", err
	}

	m.logger.Info("rules message posted",
		slog.String("actor", string(actor.ID)),
		slog.String("message", string(id)))
	return id, nil
}

// HandleReaction processes a reaction-add: the right emoji on the rules
// message grants the verified role, drops the newcomer role, and invites
// the member to register.
func (m *Manager) HandleReaction(ctx context.Context, ev platform.ReactionEvent) error {
	if ev.Emoji != acceptEmoji {
		return nil
	}
	rules, err := m.store.RulesMessage(ctx)
	if err != nil {
		if errors.Is(err, model.ErrRulesMessageNotSet) {
			return nil
		}
		return err
	}
	if ev.Message != rules {
		return nil
	}

	member, err := m.client.Member(ctx, ev.User)
	if err != nil {
		if errors.Is(err, model.ErrMemberNotFound) {
			return nil
		}
		return err
	}
	if member.IsBot {
		return nil
	}

	verifiedRole, ok := m.caps.Role(capability.Verified)
	if !ok {
		m.logger.Error("verified role not configured")
		return nil
	}
	if member.HasRole(verifiedRole) {
		return nil
	}

	if err := m.client.AddRole(ctx, ev.User, verifiedRole, "Accepted the rules"); err != nil {
		m.logger.Error("verified role grant failed", slog.String("user", string(ev.User)), slog.String("error", err.Error()))
		if derr := m.client.DirectMessage(ctx, ev.User,
			"I could not give you the verified role. Contact an admin."); derr != nil {
			m.logger.Warn("verification failure DM failed", slog.String("error", derr.Error()))
		}
		return err
	}

	if newcomerRole, ok := m.caps.Role(capability.Newcomer); ok && member.HasRole(newcomerRole) {
		if err := m.client.RemoveRole(ctx, ev.User, newcomerRole, "Rules accepted"); err != nil {
			m.logger.Warn("newcomer role removal failed", slog.String("user", string(ev.User)), slog.String("error", err.Error()))
		}
	}

	invite := platform.Text("Welcome " + platform.Mention(ev.User) + "! You have accepted the rules.\n\n" +
		"Head to the registration message below to create your player.")
	if _, err := m.client.SendMessage(ctx, m.cfg.RegistrationChannel, invite); err != nil {
		m.logger.Warn("registration invite failed", slog.String("error", err.Error()))
	}

	m.logger.Info("member verified", slog.String("user", string(ev.User)))
	return nil
}

// HandleJoin grants the newcomer role to a fresh member, when configured
func (m *Manager) HandleJoin(ctx context.Context, ev platform.MemberEvent) {
	role, ok := m.caps.Role(capability.Newcomer)
	if !ok {
		return
	}
	if err := m.client.AddRole(ctx, ev.Member.ID, role, "New member joined"); err != nil {
		m.logger.Error("newcomer role grant failed", slog.String("user", string(ev.Member.ID)), slog.String("error", err.Error()))
	}
}
