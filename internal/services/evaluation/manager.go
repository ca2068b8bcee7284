package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/session"
)

const (
	ApproveButtonID = "eval:approve"
	RejectButtonID  = "eval:reject"
)

// Decision is the terminal outcome of an evaluation
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Config holds the evaluation workflow settings
type Config struct {
	Category   model.ChannelID // optional
	GraceDelay time.Duration
}

// Manager runs the player-evaluation workflow: staff open a channel for an
// on-trial member, discuss, then approve (promote to full member) or reject
// (notify and kick).
type Manager struct {
	client platform.Client
	reg    *session.Registry
	guard  *session.InflightGuard
	caps   *capability.Set
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

// NewManager creates an evaluation manager
func NewManager(client platform.Client, reg *session.Registry, guard *session.InflightGuard, caps *capability.Set, clk clock.Clock, cfg Config, logger *slog.Logger) *Manager {
	if cfg.GraceDelay == 0 {
		cfg.GraceDelay = 15 * time.Second
	}
	return &Manager{
		client: client,
		reg:    reg,
		guard:  guard,
		caps:   caps,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
	}
}

// Open starts an evaluation for an on-trial subject. The channel is keyed on
// the subject, so two evaluators cannot open parallel evaluations for the
// same player.
func (m *Manager) Open(ctx context.Context, evaluator *platform.Member, subject model.UserID) (model.ChannelID, error) {
	if !m.caps.Has(evaluator, capability.Staff) && !m.caps.Has(evaluator, capability.Admin) {
		return "", model.ErrNotAuthorized
	}

	target, err := m.client.Member(ctx, subject)
	if err != nil {
		return "", err
	}
	trialRole, ok := m.caps.Role(capability.OnTrial)
	if !ok || !target.HasRole(trialRole) {
		return "", model.ErrSubjectNotOnTrial
	}

	if err := m.reg.Claim(ctx, subject, model.WorkflowEvaluation); err != nil {
		return "", err
	}

	tag := model.ChannelTag{Kind: model.WorkflowEvaluation, Subject: subject, Creator: evaluator.ID}
	channel, err := m.client.CreateChannel(ctx, platform.ChannelRequest{
		Name:     platform.WorkflowChannelName("eval", target.Username, subject),
		Topic:    fmt.Sprintf("Evaluation of %s. %s", target.Username, tag.Format()),
		Category: m.cfg.Category,
		Viewers:  []model.UserID{subject, evaluator.ID},
		Reason:   fmt.Sprintf("Evaluation opened by %s for %s", evaluator.ID, subject),
	})
	if err != nil {
		m.reg.Release(subject, model.WorkflowEvaluation)
		return "", err
	}
	m.reg.Bind(subject, model.WorkflowEvaluation, channel)

	intro := platform.Message{
		Embed: &platform.Embed{
			Title:       "Evaluation of " + target.DisplayName,
			Description: fmt.Sprintf("%s, the staff would like to evaluate your trial period.\n\nTell us how it went and what you would like to improve. Staff will then decide below.", platform.Mention(subject)),
			Color:       0xe67e22,
		},
		Buttons: []platform.Button{
			{ID: ApproveButtonID, Label: "Approve", Style: platform.ButtonSuccess, Emoji: "✅"},
			{ID: RejectButtonID, Label: "Reject", Style: platform.ButtonDanger, Emoji: "❌"},
		},
	}
	if _, err := m.client.SendMessage(ctx, channel, intro); err != nil {
		m.logger.Error("evaluation intro failed", slog.String("channel", string(channel)), slog.String("error", err.Error()))
	}

	m.logger.Info("evaluation opened",
		slog.String("subject", string(subject)),
		slog.String("evaluator", string(evaluator.ID)),
		slog.String("channel", string(channel)))
	return channel, nil
}

// DecideFromInteraction routes an approve/reject button click
func (m *Manager) DecideFromInteraction(ctx context.Context, inter platform.Interaction, d Decision) {
	err := m.Decide(ctx, inter.Member, inter.Channel, inter.Message, d)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, model.ErrNotAuthorized):
		m.replyEphemeral(ctx, inter, "Only staff can decide an evaluation.")
	case errors.Is(err, model.ErrDecisionInFlight):
		m.replyEphemeral(ctx, inter, "A decision is already being applied.")
	case errors.Is(err, model.ErrInsufficientHierarchy):
		m.replyEphemeral(ctx, inter, "My role sits too low to apply this decision. Move my role up and try again.")
	default:
		m.replyEphemeral(ctx, inter, "Something went wrong applying the decision.")
	}
}

// Decide applies the terminal outcome. On failure of the role change or
// kick, the channel is kept so staff can retry; the registry entry is only
// released once cleanup succeeds. The optional control is the decision
// message, greyed out once the outcome is final.
func (m *Manager) Decide(ctx context.Context, actor *platform.Member, channel model.ChannelID, control model.MessageID, d Decision) error {
	if actor == nil || (!m.caps.Has(actor, capability.Staff) && !m.caps.Has(actor, capability.Admin)) {
		return model.ErrNotAuthorized
	}

	subject, err := m.resolveSubject(ctx, channel)
	if err != nil {
		return err
	}

	if !m.guard.TryAcquire(channel) {
		return model.ErrDecisionInFlight
	}
	defer m.guard.Release(channel)

	target, err := m.client.Member(ctx, subject)
	if errors.Is(err, model.ErrMemberNotFound) {
		// The subject left on their own: nothing to apply, just wind down.
		m.disableControl(ctx, channel, control)
		m.announce(ctx, channel, fmt.Sprintf("The evaluated member has left the server. Closing in %d seconds.", int(m.cfg.GraceDelay.Seconds())))
		return m.cleanup(ctx, subject, channel, actor.ID)
	}
	if err != nil {
		return err
	}

	// The buttons stay live until the outcome sticks, so a failed role
	// change or kick can be retried from the same message.
	switch d {
	case DecisionApprove:
		if err := m.approve(ctx, target, actor); err != nil {
			return err
		}
		m.disableControl(ctx, channel, control)
		m.announce(ctx, channel, fmt.Sprintf("✅ %s has been approved and is now a full member! This channel will close in %d seconds.",
			platform.Mention(subject), int(m.cfg.GraceDelay.Seconds())))
	case DecisionReject:
		if err := m.reject(ctx, target, actor); err != nil {
			return err
		}
		m.disableControl(ctx, channel, control)
		m.announce(ctx, channel, fmt.Sprintf("❌ The trial of %s has been ended. This channel will close in %d seconds.",
			target.Username, int(m.cfg.GraceDelay.Seconds())))
	default:
		return fmt.Errorf("unknown decision %q", d)
	}

	m.logger.Info("evaluation decided",
		slog.String("subject", string(subject)),
		slog.String("actor", string(actor.ID)),
		slog.String("decision", string(d)))
	return m.cleanup(ctx, subject, channel, actor.ID)
}

// approve swaps the trial role for the full-member role. The grant happens
// first so a failure between the two steps never leaves the member roleless.
func (m *Manager) approve(ctx context.Context, target *platform.Member, actor *platform.Member) error {
	trialRole, _ := m.caps.Role(capability.OnTrial)
	memberRole, ok := m.caps.Role(capability.FullMember)
	if !ok {
		return fmt.Errorf("no full-member role configured")
	}

	outranks, err := platform.BotOutranks(ctx, m.client, trialRole, memberRole)
	if err != nil {
		return err
	}
	if !outranks {
		return model.ErrInsufficientHierarchy
	}

	reason := fmt.Sprintf("Evaluation approved by %s", actor.ID)
	if err := m.client.AddRole(ctx, target.ID, memberRole, reason); err != nil {
		return err
	}
	if err := m.client.RemoveRole(ctx, target.ID, trialRole, reason); err != nil {
		return err
	}
	return nil
}

// reject notifies the member by DM, best effort, then kicks them
func (m *Manager) reject(ctx context.Context, target *platform.Member, actor *platform.Member) error {
	outranks, err := platform.BotOutranksMember(ctx, m.client, target)
	if err != nil {
		return err
	}
	if !outranks {
		return model.ErrInsufficientHierarchy
	}

	if err := m.client.DirectMessage(ctx, target.ID,
		"Your trial period has ended and the staff decided not to continue. Thank you for trying out, and good luck!"); err != nil {
		m.logger.Warn("rejection DM failed", slog.String("user", string(target.ID)), slog.String("error", err.Error()))
	}

	return m.client.Kick(ctx, target.ID, fmt.Sprintf("Evaluation rejected by %s", actor.ID))
}

func (m *Manager) cleanup(ctx context.Context, subject model.UserID, channel model.ChannelID, actor model.UserID) error {
	if err := m.clock.Sleep(ctx, m.cfg.GraceDelay); err != nil {
		return err
	}
	if err := m.client.DeleteChannel(ctx, channel, fmt.Sprintf("Evaluation resolved by %s", actor)); err != nil && !errors.Is(err, model.ErrChannelNotFound) {
		return err
	}
	m.reg.Release(subject, model.WorkflowEvaluation)
	return nil
}

// resolveSubject recovers who an evaluation channel is about. The topic tag
// wins; the registry covers a wiped topic.
func (m *Manager) resolveSubject(ctx context.Context, channel model.ChannelID) (model.UserID, error) {
	topic, err := m.client.ChannelTopic(ctx, channel)
	if err == nil {
		if tag, terr := model.ParseTag(topic); terr == nil && tag.Kind == model.WorkflowEvaluation {
			return tag.Subject, nil
		}
	}
	if owner, ok := m.reg.Owner(channel, model.WorkflowEvaluation); ok {
		return owner, nil
	}
	return "", model.ErrTagNotFound
}

func (m *Manager) disableControl(ctx context.Context, channel model.ChannelID, control model.MessageID) {
	if control == "" {
		return
	}
	if err := m.client.DisableControls(ctx, channel, control); err != nil {
		m.logger.Warn("decision control disable failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) announce(ctx context.Context, channel model.ChannelID, content string) {
	if _, err := m.client.SendMessage(ctx, channel, platform.Text(content)); err != nil {
		m.logger.Warn("evaluation announcement failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) replyEphemeral(ctx context.Context, inter platform.Interaction, content string) {
	if err := m.client.ReplyEphemeral(ctx, inter, content); err != nil {
		m.logger.Warn("ephemeral reply failed", slog.String("error", err.Error()))
	}
}
