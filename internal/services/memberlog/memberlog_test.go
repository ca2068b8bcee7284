package memberlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpgclub/clubbot/internal/dependencies/mocks"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/platform/platformtest"
	"github.com/vpgclub/clubbot/internal/testutil"
)

func newLogger(t *testing.T) (*Logger, *platformtest.FakeClient, *mocks.MockClock) {
	t.Helper()
	client := platformtest.NewFakeClient()
	client.AddChannel("chan-arrivals", "")
	client.AddChannel("chan-departures", "")
	clk := mocks.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	l := NewLogger(client, clk, Config{
		ArrivalsChannel:   "chan-arrivals",
		DeparturesChannel: "chan-departures",
		RulesChannel:      "chan-rules",
		RegChannel:        "chan-reg",
		HelpChannel:       "chan-help",
		ServerName:        "Pur Esport",
	}, testutil.NopLogger())
	return l, client, clk
}

func TestJoinEmbedListsOnboardingSteps(t *testing.T) {
	l, client, _ := newLogger(t)
	m := client.AddMember("u1")

	l.HandleJoin(context.Background(), platform.MemberEvent{Member: *m, MemberCount: 42})

	msg := client.LastMessage("chan-arrivals")
	require.NotNil(t, msg)
	require.NotNil(t, msg.Msg.Embed)
	assert.Contains(t, msg.Msg.Embed.Title, "Welcome to Pur Esport")
	assert.Contains(t, msg.Msg.Embed.Description, "**42** members")
	require.Len(t, msg.Msg.Embed.Fields, 3)
	assert.Contains(t, msg.Msg.Embed.Fields[0].Value, platform.MentionChannel("chan-rules"))
	assert.Contains(t, msg.Msg.Embed.Fields[1].Value, platform.MentionChannel("chan-reg"))
	assert.Contains(t, msg.Msg.Embed.Fields[2].Value, platform.MentionChannel("chan-help"))
}

func TestLeaveEmbedHumanizesDuration(t *testing.T) {
	l, client, clk := newLogger(t)
	m := client.AddMember("u1")
	m.JoinedAt = clk.Now().Add(-(49*time.Hour + 5*time.Minute))

	l.HandleLeave(context.Background(), platform.MemberEvent{Member: *m})

	msg := client.LastMessage("chan-departures")
	require.NotNil(t, msg)
	require.NotNil(t, msg.Msg.Embed)
	assert.Equal(t, "Was with us for 2 days, 1 hour and 5 minutes", msg.Msg.Embed.Footer)
}

func TestLeaveWithoutJoinDate(t *testing.T) {
	l, client, _ := newLogger(t)
	m := client.AddMember("u1")

	l.HandleLeave(context.Background(), platform.MemberEvent{Member: *m})

	msg := client.LastMessage("chan-departures")
	require.NotNil(t, msg)
	assert.Equal(t, "Membership duration unknown", msg.Msg.Embed.Footer)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "for a few moments"},
		{time.Minute, "for 1 minute"},
		{5 * time.Minute, "for 5 minutes"},
		{time.Hour, "for 1 hour"},
		{26 * time.Hour, "for 1 day and 2 hours"},
		{73*time.Hour + 10*time.Minute, "for 3 days, 1 hour and 10 minutes"},
		{24 * time.Hour, "for 1 day"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.d), c.d.String())
	}
}
