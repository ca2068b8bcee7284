package bot

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/services/evaluation"
	"github.com/vpgclub/clubbot/internal/services/memberlog"
	"github.com/vpgclub/clubbot/internal/services/onboarding"
	"github.com/vpgclub/clubbot/internal/services/registration"
	"github.com/vpgclub/clubbot/internal/services/ticket"
	"github.com/vpgclub/clubbot/internal/session"
)

// commandPrefix introduces a chat command
const commandPrefix = "!"

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// Bot fans gateway events out to the workflow services. Each inbound event
// arrives on its own goroutine; the services own their locking.
type Bot struct {
	client     platform.Client
	dispatcher *dialog.Dispatcher
	components *ComponentRegistry
	logger     *slog.Logger

	onboarding   *onboarding.Manager
	memberlog    *memberlog.Logger
	registration *registration.Manager
	tickets      *ticket.Manager
	evaluations  *evaluation.Manager
	streams      PresenceHandler
}

// PresenceHandler consumes presence updates
type PresenceHandler interface {
	HandlePresence(ctx context.Context, ev platform.PresenceEvent)
}

// Services bundles the workflow services the bot routes to
type Services struct {
	Onboarding   *onboarding.Manager
	Memberlog    *memberlog.Logger
	Registration *registration.Manager
	Tickets      *ticket.Manager
	Evaluations  *evaluation.Manager
	Streams      PresenceHandler
}

// New creates the bot router and registers the persistent controls
func New(client platform.Client, dispatcher *dialog.Dispatcher, svcs Services, logger *slog.Logger) *Bot {
	b := &Bot{
		client:       client,
		dispatcher:   dispatcher,
		components:   NewComponentRegistry(),
		logger:       logger,
		onboarding:   svcs.Onboarding,
		memberlog:    svcs.Memberlog,
		registration: svcs.Registration,
		tickets:      svcs.Tickets,
		evaluations:  svcs.Evaluations,
		streams:      svcs.Streams,
	}
	b.registerComponents()
	return b
}

// registerComponents binds the durable control IDs. Idempotent; also called
// on every gateway ready.
func (b *Bot) registerComponents() {
	b.components.Register(ticket.CreateButtonID, func(ctx context.Context, inter platform.Interaction) {
		b.tickets.Open(ctx, inter)
	})
	b.components.Register(ticket.CloseButtonID, func(ctx context.Context, inter platform.Interaction) {
		b.tickets.CloseFromInteraction(ctx, inter)
	})
	b.components.Register(registration.RegisterButtonID, func(ctx context.Context, inter platform.Interaction) {
		b.registration.Start(ctx, inter)
	})
	b.components.Register(evaluation.ApproveButtonID, func(ctx context.Context, inter platform.Interaction) {
		b.evaluations.DecideFromInteraction(ctx, inter, evaluation.DecisionApprove)
	})
	b.components.Register(evaluation.RejectButtonID, func(ctx context.Context, inter platform.Interaction) {
		b.evaluations.DecideFromInteraction(ctx, inter, evaluation.DecisionReject)
	})
}

// Handlers returns the gateway handler set for this bot
func (b *Bot) Handlers() platform.Handlers {
	return platform.Handlers{
		Ready:          b.handleReady,
		Message:        b.HandleMessage,
		Interaction:    b.HandleInteraction,
		ReactionAdd:    b.handleReaction,
		MemberJoin:     b.handleJoin,
		MemberLeave:    b.handleLeave,
		PresenceUpdate: b.handlePresence,
	}
}

func (b *Bot) handleReady(ctx context.Context) {
	b.registerComponents()
	b.logger.Info("gateway ready, controls re-attached")
}

// HandleMessage routes a guild message: chat commands first, then any
// dialog waiting on this (channel, user) pair.
func (b *Bot) HandleMessage(ctx context.Context, ev platform.MessageEvent) {
	if ev.AuthorBot {
		return
	}
	if strings.HasPrefix(ev.Content, commandPrefix) {
		b.handleCommand(ctx, ev)
		return
	}
	b.dispatcher.HandleMessage(ctx, ev)
}

// HandleInteraction routes a component click: in-flight dialog menus first,
// then the persistent controls.
func (b *Bot) HandleInteraction(ctx context.Context, inter platform.Interaction) {
	if b.dispatcher.HandleInteraction(ctx, inter) {
		return
	}
	if b.components.Dispatch(ctx, inter) {
		return
	}
	b.logger.Warn("unroutable interaction", slog.String("component", inter.ComponentID))
}

func (b *Bot) handleReaction(ctx context.Context, ev platform.ReactionEvent) {
	if err := b.onboarding.HandleReaction(ctx, ev); err != nil {
		b.logger.Error("reaction handling failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) handleJoin(ctx context.Context, ev platform.MemberEvent) {
	b.onboarding.HandleJoin(ctx, ev)
	b.memberlog.HandleJoin(ctx, ev)
}

func (b *Bot) handleLeave(ctx context.Context, ev platform.MemberEvent) {
	b.memberlog.HandleLeave(ctx, ev)
}

func (b *Bot) handlePresence(ctx context.Context, ev platform.PresenceEvent) {
	b.streams.HandlePresence(ctx, ev)
}

// handleCommand parses and executes a prefixed chat command
func (b *Bot) handleCommand(ctx context.Context, ev platform.MessageEvent) {
	fields := strings.Fields(ev.Content)
	name := strings.TrimPrefix(fields[0], commandPrefix)

	switch name {
	case "postrules":
		b.cmdPostRules(ctx, ev)
	case "setuptickets":
		b.cmdSetupTickets(ctx, ev)
	case "closeticket":
		b.cmdCloseTicket(ctx, ev, fields[1:])
	case "evaluate":
		b.cmdEvaluate(ctx, ev, fields[1:])
	}
}

func (b *Bot) cmdPostRules(ctx context.Context, ev platform.MessageEvent) {
	if _, err := b.onboarding.PostRules(ctx, ev.Member); err != nil {
		b.replyError(ctx, ev, err, "Only admins can post the rules.")
		return
	}
	b.reply(ctx, ev, "Rules message posted.")
}

func (b *Bot) cmdSetupTickets(ctx context.Context, ev platform.MessageEvent) {
	if err := b.tickets.SetupPrompt(ctx, ev.Member); err != nil {
		b.replyError(ctx, ev, err, "Only admins can set up the ticket prompt.")
		return
	}
	b.reply(ctx, ev, "Ticket prompt posted.")
}

func (b *Bot) cmdCloseTicket(ctx context.Context, ev platform.MessageEvent, args []string) {
	err := b.tickets.Close(ctx, ev.Member, ev.Channel, "", strings.Join(args, " "))
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotAuthorized):
		b.reply(ctx, ev, "Only the ticket opener or staff can close this ticket.")
	case errors.Is(err, model.ErrTagNotFound):
		b.reply(ctx, ev, "This channel is not a ticket.")
	default:
		b.logger.Error("close command failed", slog.String("error", err.Error()))
		b.reply(ctx, ev, "Something went wrong closing the ticket.")
	}
}

func (b *Bot) cmdEvaluate(ctx context.Context, ev platform.MessageEvent, args []string) {
	subject, ok := parseMention(args)
	if !ok {
		b.reply(ctx, ev, "Usage: !evaluate @member")
		return
	}

	channel, err := b.evaluations.Open(ctx, ev.Member, subject)
	switch {
	case err == nil:
		b.reply(ctx, ev, "Evaluation opened: "+platform.MentionChannel(channel))
	case errors.Is(err, model.ErrNotAuthorized):
		b.reply(ctx, ev, "Only staff can open an evaluation.")
	case errors.Is(err, model.ErrSubjectNotOnTrial):
		b.reply(ctx, ev, "That member is not on trial.")
	case errors.Is(err, model.ErrMemberNotFound):
		b.reply(ctx, ev, "I cannot find that member.")
	default:
		var open *session.AlreadyOpenError
		if errors.As(err, &open) {
			if open.Channel == "" {
				b.reply(ctx, ev, "An evaluation for that member is already being opened.")
			} else {
				b.reply(ctx, ev, "An evaluation is already open for that member: "+platform.MentionChannel(open.Channel))
			}
			return
		}
		b.logger.Error("evaluate command failed", slog.String("error", err.Error()))
		b.reply(ctx, ev, "Something went wrong opening the evaluation.")
	}
}

func (b *Bot) reply(ctx context.Context, ev platform.MessageEvent, content string) {
	if _, err := b.client.SendMessage(ctx, ev.Channel, platform.Text(content)); err != nil {
		b.logger.Warn("command reply failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) replyError(ctx context.Context, ev platform.MessageEvent, err error, unauthorized string) {
	if errors.Is(err, model.ErrNotAuthorized) {
		b.reply(ctx, ev, unauthorized)
		return
	}
	b.logger.Error("command failed", slog.String("error", err.Error()))
	b.reply(ctx, ev, "Something went wrong.")
}

// parseMention extracts the first user mention from command arguments
func parseMention(args []string) (model.UserID, bool) {
	for _, a := range args {
		if m := mentionPattern.FindStringSubmatch(a); m != nil {
			return model.UserID(m[1]), true
		}
	}
	return "", false
}
