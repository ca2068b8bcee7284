package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/mocks"
	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/platform/platformtest"
	"github.com/vpgclub/clubbot/internal/services/evaluation"
	"github.com/vpgclub/clubbot/internal/services/memberlog"
	"github.com/vpgclub/clubbot/internal/services/onboarding"
	"github.com/vpgclub/clubbot/internal/services/registration"
	"github.com/vpgclub/clubbot/internal/services/ticket"
	"github.com/vpgclub/clubbot/internal/session"
	"github.com/vpgclub/clubbot/internal/storage/memory"
	"github.com/vpgclub/clubbot/internal/testutil"
)

const (
	adminRole    = model.RoleID("role-admin")
	staffRole    = model.RoleID("role-staff")
	trialRole    = model.RoleID("role-trial")
	memberRole   = model.RoleID("role-member")
	verifiedRole = model.RoleID("role-verified")
)

type fixture struct {
	client *platformtest.FakeClient
	bot    *Bot
}

type nopPresence struct{}

func (nopPresence) HandlePresence(ctx context.Context, ev platform.PresenceEvent) {}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := platformtest.NewFakeClient()
	for _, ch := range []model.ChannelID{"chan-rules", "chan-reg", "chan-pres", "chan-arrivals", "chan-departures", "chan-tickets", "chan-cmd"} {
		client.AddChannel(ch, "")
	}
	client.RolePositions[trialRole] = 10
	client.RolePositions[memberRole] = 20
	client.RolePositions[verifiedRole] = 5
	client.BotTopPosition = 100

	caps := capability.NewSet()
	caps.Grant(capability.Admin, adminRole)
	caps.Grant(capability.Staff, staffRole)
	caps.Grant(capability.OnTrial, trialRole)
	caps.Grant(capability.FullMember, memberRole)
	caps.Grant(capability.Verified, verifiedRole)

	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	dispatcher := dialog.NewDispatcher(client, testutil.NopLogger())
	engine := dialog.NewEngine(client, dispatcher, testutil.NopLogger())
	engine.SetStepTimeout(50 * time.Millisecond)
	reg := session.NewRegistry(client)
	guard := session.NewInflightGuard()
	logger := testutil.NopLogger()

	svcs := Services{
		Onboarding: onboarding.NewManager(client, store, caps, onboarding.Config{
			RulesChannel:        "chan-rules",
			RegistrationChannel: "chan-reg",
		}, logger),
		Memberlog: memberlog.NewLogger(client, clk, memberlog.Config{
			ArrivalsChannel:   "chan-arrivals",
			DeparturesChannel: "chan-departures",
			RulesChannel:      "chan-rules",
			RegChannel:        "chan-reg",
			HelpChannel:       "chan-tickets",
			ServerName:        "Test FC",
		}, logger),
		Registration: registration.NewManager(client, store, engine, reg, caps, clk, registration.Config{
			Channel:             "chan-reg",
			PresentationChannel: "chan-pres",
		}, logger),
		Tickets: ticket.NewManager(client, reg, guard, caps, clk, ticket.Config{
			CreationChannel: "chan-tickets",
			GraceDelay:      time.Second,
		}, logger),
		Evaluations: evaluation.NewManager(client, reg, guard, caps, clk, evaluation.Config{
			GraceDelay: time.Second,
		}, logger),
		Streams: nopPresence{},
	}

	return &fixture{client: client, bot: New(client, dispatcher, svcs, logger)}
}

func (f *fixture) message(user model.UserID, channel model.ChannelID, content string) platform.MessageEvent {
	m, _ := f.client.Member(context.Background(), user)
	return platform.MessageEvent{
		ID: "msg-in", Channel: channel, Author: user, Content: content, Member: m,
	}
}

func TestPostRulesCommand(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("admin", adminRole)

	f.bot.HandleMessage(context.Background(), f.message("admin", "chan-cmd", "!postrules"))

	rules := f.client.LastMessage("chan-rules")
	require.NotNil(t, rules)
	require.NotNil(t, rules.Msg.Embed)

	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "posted")
}

func TestPostRulesCommandUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("u1")

	f.bot.HandleMessage(context.Background(), f.message("u1", "chan-cmd", "!postrules"))

	assert.Nil(t, f.client.LastMessage("chan-rules"))
	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "Only admins")
}

func TestEvaluateCommandOpensChannel(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("mod", staffRole)
	f.client.AddMember("111222333", trialRole)

	f.bot.HandleMessage(context.Background(), f.message("mod", "chan-cmd", "!evaluate <@111222333>"))

	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "Evaluation opened")
}

func TestEvaluateCommandNicknameMentionForm(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("mod", staffRole)
	f.client.AddMember("111222333", trialRole)

	f.bot.HandleMessage(context.Background(), f.message("mod", "chan-cmd", "!evaluate <@!111222333>"))

	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "Evaluation opened")
}

func TestEvaluateCommandWithoutMention(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("mod", staffRole)

	f.bot.HandleMessage(context.Background(), f.message("mod", "chan-cmd", "!evaluate someone"))

	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "Usage")
}

func TestCloseTicketCommandOutsideTicketChannel(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("mod", staffRole)

	f.bot.HandleMessage(context.Background(), f.message("mod", "chan-cmd", "!closeticket"))

	reply := f.client.LastMessage("chan-cmd")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Msg.Content, "not a ticket")
	assert.False(t, f.client.Channel("chan-cmd").Deleted)
}

func TestCloseTicketCommandPassesReason(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("u1")
	m, _ := f.client.Member(context.Background(), "u1")

	f.bot.HandleInteraction(context.Background(), platform.Interaction{
		ComponentID: ticket.CreateButtonID, User: "u1", Member: m, Channel: "chan-tickets",
	})

	var ticketCh model.ChannelID
	for id, c := range f.client.Channels {
		if _, err := model.ParseTag(c.Topic); err == nil {
			ticketCh = id
		}
	}
	require.NotEmpty(t, ticketCh)

	f.bot.HandleMessage(context.Background(), f.message("u1", ticketCh, "!closeticket resolved over voice"))

	assert.True(t, f.client.Channel(ticketCh).Deleted)
	assert.Contains(t, f.client.Channel(ticketCh).DeleteReason, "resolved over voice")
}

func TestUnknownCommandIgnored(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("u1")

	f.bot.HandleMessage(context.Background(), f.message("u1", "chan-cmd", "!frobnicate"))

	assert.Nil(t, f.client.LastMessage("chan-cmd"))
}

func TestBotMessagesIgnored(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(context.Background(), platform.MessageEvent{
		Channel: "chan-cmd", Author: "bot", AuthorBot: true, Content: "!postrules",
	})

	assert.Nil(t, f.client.LastMessage("chan-cmd"))
}

func TestInteractionRoutesToPersistentControl(t *testing.T) {
	f := newFixture(t)
	f.client.AddMember("u1")
	m, _ := f.client.Member(context.Background(), "u1")

	f.bot.HandleInteraction(context.Background(), platform.Interaction{
		ComponentID: registration.RegisterButtonID, User: "u1", Member: m, Channel: "chan-reg",
	})

	// Unverified user: the registration gate answers ephemerally.
	require.NotEmpty(t, f.client.Ephemerals)
	assert.Contains(t, f.client.Ephemerals[0], "role required")
}

func TestUnroutableInteractionDoesNotPanic(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleInteraction(context.Background(), platform.Interaction{
		ComponentID: "something:else", User: "u1",
	})
}

func TestJoinEventFansOutToOnboardingAndLog(t *testing.T) {
	f := newFixture(t)
	m := f.client.AddMember("u1")

	f.bot.Handlers().MemberJoin(context.Background(), platform.MemberEvent{Member: *m, MemberCount: 7})

	arrival := f.client.LastMessage("chan-arrivals")
	require.NotNil(t, arrival)
	assert.Contains(t, arrival.Msg.Embed.Description, "**7** members")
}

func TestReadyReregistersControlsIdempotently(t *testing.T) {
	f := newFixture(t)
	f.bot.Handlers().Ready(context.Background())
	f.bot.Handlers().Ready(context.Background())

	assert.True(t, f.bot.components.Registered(registration.RegisterButtonID))
	assert.True(t, f.bot.components.Registered(ticket.CreateButtonID))
	assert.True(t, f.bot.components.Registered(ticket.CloseButtonID))
	assert.True(t, f.bot.components.Registered(evaluation.ApproveButtonID))
	assert.True(t, f.bot.components.Registered(evaluation.RejectButtonID))
}
