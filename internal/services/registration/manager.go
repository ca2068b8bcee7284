package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/session"
	"github.com/vpgclub/clubbot/internal/storage"
)

// RegisterButtonID is the durable custom ID of the persistent register button
const RegisterButtonID = "register:start"

// purgeLimit bounds the post-registration channel cleanup
const purgeLimit = 200

// Config holds the registration workflow settings
type Config struct {
	Channel             model.ChannelID // shared registration channel
	PresentationChannel model.ChannelID
	PurgeDelay          time.Duration
}

// Manager runs the registration workflow: a persistent button starts the
// question dialog in the shared registration channel, the answers become a
// write-once profile, and the member is moved from verified to on-trial.
type Manager struct {
	client platform.Client
	store  storage.Storage
	engine *dialog.Engine
	reg    *session.Registry
	caps   *capability.Set
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

// NewManager creates a registration manager
func NewManager(client platform.Client, store storage.Storage, engine *dialog.Engine, reg *session.Registry, caps *capability.Set, clk clock.Clock, cfg Config, logger *slog.Logger) *Manager {
	if cfg.PurgeDelay == 0 {
		cfg.PurgeDelay = 10 * time.Second
	}
	return &Manager{
		client: client,
		store:  store,
		engine: engine,
		reg:    reg,
		caps:   caps,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
	}
}

// PostButton posts the persistent register button to the registration channel
func (m *Manager) PostButton(ctx context.Context) error {
	msg := platform.Message{
		Embed: &platform.Embed{
			Title:       "Player registration",
			Description: "Ready to join the squad? Click the button below and answer a few questions to create your player profile.",
			Color:       0x2ecc71,
		},
		Buttons: []platform.Button{
			{ID: RegisterButtonID, Label: "Create my player", Style: platform.ButtonSuccess, Emoji: "⚽"},
		},
	}
	_, err := m.client.SendMessage(ctx, m.cfg.Channel, msg)
	return err
}

// Start handles a click on the register button. Gate checks happen before
// any prompt is posted; the whole dialog runs in the shared channel.
func (m *Manager) Start(ctx context.Context, inter platform.Interaction) {
	user := inter.User

	if _, err := m.store.GetProfile(ctx, user); err == nil {
		m.replyEphemeral(ctx, inter, "You are already registered.")
		return
	} else if !errors.Is(err, model.ErrProfileNotFound) {
		m.logger.Error("profile lookup failed", slog.String("user", string(user)), slog.String("error", err.Error()))
		m.replyEphemeral(ctx, inter, "Something went wrong. Try again later.")
		return
	}

	if !m.caps.Has(inter.Member, capability.Verified) {
		m.replyEphemeral(ctx, inter, "You do not (or no longer) have the role required to register.")
		return
	}

	if err := m.reg.Claim(ctx, user, model.WorkflowRegistration); err != nil {
		var open *session.AlreadyOpenError
		if errors.As(err, &open) {
			m.replyEphemeral(ctx, inter, "Your registration is already in progress.")
			return
		}
		m.logger.Error("registration claim failed", slog.String("user", string(user)), slog.String("error", err.Error()))
		m.replyEphemeral(ctx, inter, "Something went wrong. Try again later.")
		return
	}
	m.reg.Bind(user, model.WorkflowRegistration, m.cfg.Channel)
	defer m.reg.Release(user, model.WorkflowRegistration)

	m.replyEphemeral(ctx, inter, "Ok "+platform.Mention(user)+", we will start here.")
	m.run(ctx, user)
}

// run drives the dialog and applies the terminal effects. Called with the
// registry entry held; the caller releases it.
func (m *Manager) run(ctx context.Context, user model.UserID) {
	startID, err := m.client.SendMessage(ctx, m.cfg.Channel,
		platform.Text(fmt.Sprintf("--- Starting registration for %s (answer the questions below) ---", platform.Mention(user))))
	if err != nil {
		m.logger.Error("registration start message failed", slog.String("error", err.Error()))
		return
	}

	answers, err := m.engine.Run(ctx, m.cfg.Channel, user, questionSteps())
	if err != nil {
		// Timeout or delivery failure: nothing persisted, the user can
		// simply click the button again.
		m.deleteQuietly(ctx, startID)
		m.logger.Info("registration aborted", slog.String("user", string(user)), slog.String("error", err.Error()))
		return
	}
	m.deleteQuietly(ctx, startID)

	member, err := m.client.Member(ctx, user)
	if err != nil {
		m.logger.Error("registered member vanished", slog.String("user", string(user)), slog.String("error", err.Error()))
		return
	}

	profile := &model.PlayerProfile{
		UserID:            user,
		GamerTag:          answers.Get(keyGamerTag),
		PrimaryPosition:   answers.Get(keyPrimaryPos),
		SecondaryPosition: answers.Get(keySecondaryPos),
		Availability:      answers.All(keyAvailability),
		FormerClub:        answers.Get(keyFormerClub),
		Competitions:      answers.All(keyCompetitions),
		Experience:        answers.Get(keyExperience),
		Username:          member.Username,
		DisplayName:       member.DisplayName,
		AvatarURL:         member.AvatarURL,
		RegisteredAt:      m.clock.Now().UTC(),
	}
	if err := m.store.SaveProfile(ctx, profile); err != nil {
		m.logger.Error("profile save failed", slog.String("user", string(user)), slog.String("error", err.Error()))
		m.announce(ctx, fmt.Sprintf("%s, a critical error occurred. Contact an admin.", platform.Mention(user)))
		return
	}
	m.logger.Info("player registered", slog.String("user", string(user)), slog.String("gamer_tag", profile.GamerTag))

	presented := m.present(ctx, profile)
	roleAdded, roleRemoved := m.swapRoles(ctx, member)

	m.confirm(ctx, user, presented, roleAdded, roleRemoved)
	m.purgeAfterDelay(ctx)
}

// present posts the public presentation embed. Failure is reported in the
// confirmation message, never fatal.
func (m *Manager) present(ctx context.Context, p *model.PlayerProfile) bool {
	embed := &platform.Embed{
		Title:       fmt.Sprintf("✨ Presentation: %s ✨", p.DisplayName),
		Description: platform.Mention(p.UserID) + " has completed their registration!",
		Color:       0x0099ff,
		Thumbnail:   p.AvatarURL,
		Footer:      "ID: " + string(p.UserID),
		Fields: []platform.EmbedField{
			{Name: "Player Name", Value: p.GamerTag},
			{Name: "Primary Position", Value: p.PrimaryPosition, Inline: true},
			{Name: "Secondary Position", Value: p.SecondaryPosition, Inline: true},
			{Name: "Availability", Value: strings.Join(p.Availability, ", ")},
			{Name: "Former Club", Value: p.FormerClub, Inline: true},
			{Name: "Competitions Played", Value: strings.Join(p.Competitions, ", ")},
			{Name: "Experience", Value: p.Experience},
		},
		Timestamp: &p.RegisteredAt,
	}
	if _, err := m.client.SendMessage(ctx, m.cfg.PresentationChannel, platform.Message{Embed: embed}); err != nil {
		m.logger.Error("presentation embed failed", slog.String("user", string(p.UserID)), slog.String("error", err.Error()))
		return false
	}
	return true
}

// swapRoles moves the member from verified to on-trial. The add happens
// first; a failed removal is reported, never rolled back.
func (m *Manager) swapRoles(ctx context.Context, member *platform.Member) (added, removed bool) {
	trialRole, okTrial := m.caps.Role(capability.OnTrial)
	verifiedRole, okVerified := m.caps.Role(capability.Verified)
	if !okTrial || !okVerified {
		m.logger.Error("trial or verified role not configured")
		return false, false
	}

	outranks, err := platform.BotOutranks(ctx, m.client, trialRole, verifiedRole)
	if err != nil || !outranks {
		m.logger.Error("insufficient hierarchy for registration role swap", slog.String("user", string(member.ID)))
		return false, false
	}

	if err := m.client.AddRole(ctx, member.ID, trialRole, "Registration completed"); err != nil {
		m.logger.Error("trial role grant failed", slog.String("user", string(member.ID)), slog.String("error", err.Error()))
		return false, false
	}
	if err := m.client.RemoveRole(ctx, member.ID, verifiedRole, "Replaced by trial role"); err != nil {
		m.logger.Error("verified role removal failed", slog.String("user", string(member.ID)), slog.String("error", err.Error()))
		return true, false
	}
	return true, true
}

func (m *Manager) confirm(ctx context.Context, user model.UserID, presented, roleAdded, roleRemoved bool) {
	text := "✅ Registration complete, " + platform.Mention(user) + "!"
	if presented {
		text += " Your presentation has been posted."
	} else {
		text += " (Could not publish your presentation.)"
	}
	switch {
	case roleAdded && roleRemoved:
		text += " Your trial role has been assigned."
	case roleAdded:
		text += " Trial role assigned, but your previous role could not be removed."
	default:
		text += " (Could not assign your trial role — contact an admin.)"
	}
	m.announce(ctx, text)
}

// purgeAfterDelay bulk-deletes the dialog residue from the shared channel
func (m *Manager) purgeAfterDelay(ctx context.Context) {
	if err := m.clock.Sleep(ctx, m.cfg.PurgeDelay); err != nil {
		return
	}
	n, err := m.client.PurgeChannel(ctx, m.cfg.Channel, purgeLimit)
	if err != nil {
		m.logger.Error("registration channel purge failed", slog.String("error", err.Error()))
		return
	}
	m.logger.Info("registration channel purged", slog.Int("messages", n))
	if err := m.PostButton(ctx); err != nil {
		m.logger.Error("register button repost failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) announce(ctx context.Context, content string) {
	if _, err := m.client.SendMessage(ctx, m.cfg.Channel, platform.Text(content)); err != nil {
		m.logger.Warn("registration announcement failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) deleteQuietly(ctx context.Context, id model.MessageID) {
	if err := m.client.DeleteMessage(ctx, m.cfg.Channel, id); err != nil {
		m.logger.Warn("could not delete registration message", slog.String("error", err.Error()))
	}
}

func (m *Manager) replyEphemeral(ctx context.Context, inter platform.Interaction, content string) {
	if err := m.client.ReplyEphemeral(ctx, inter, content); err != nil {
		m.logger.Warn("ephemeral reply failed", slog.String("error", err.Error()))
	}
}
