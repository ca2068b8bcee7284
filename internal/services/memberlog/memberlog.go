package memberlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Config holds the member-event announcement settings
type Config struct {
	ArrivalsChannel   model.ChannelID
	DeparturesChannel model.ChannelID
	RulesChannel      model.ChannelID
	RegChannel        model.ChannelID
	HelpChannel       model.ChannelID
	ServerName        string
}

// Logger posts the arrival and departure embeds
type Logger struct {
	client platform.Client
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

// NewLogger creates a member-event logger
func NewLogger(client platform.Client, clk clock.Clock, cfg Config, logger *slog.Logger) *Logger {
	return &Logger{client: client, clock: clk, cfg: cfg, logger: logger}
}

// HandleJoin posts the welcome embed with the onboarding steps
func (l *Logger) HandleJoin(ctx context.Context, ev platform.MemberEvent) {
	m := ev.Member
	embed := &platform.Embed{
		Title: fmt.Sprintf("👋 Welcome to %s, %s!", l.cfg.ServerName, m.DisplayName),
		Description: fmt.Sprintf("%s just joined us.\nWe are now **%d** members ✨",
			platform.Mention(m.ID), ev.MemberCount),
		Color:     0x3498db,
		Thumbnail: m.AvatarURL,
		Footer:    "ID: " + string(m.ID),
		Fields: []platform.EmbedField{
			{Name: "1️⃣ Accept the rules", Value: "Read and accept the rules in " + platform.MentionChannel(l.cfg.RulesChannel) + "."},
			{Name: "2️⃣ Register your player", Value: "Complete your player profile in " + platform.MentionChannel(l.cfg.RegChannel) + "."},
			{Name: "3️⃣ Need help?", Value: "Open a ticket in " + platform.MentionChannel(l.cfg.HelpChannel) + "."},
		},
	}
	if _, err := l.client.SendMessage(ctx, l.cfg.ArrivalsChannel, platform.Message{Embed: embed}); err != nil {
		l.logger.Error("arrival embed failed", slog.String("user", string(m.ID)), slog.String("error", err.Error()))
		return
	}
	l.logger.Info("member joined", slog.String("user", string(m.ID)), slog.Int("members", ev.MemberCount))
}

// HandleLeave posts the departure embed with a humanized membership duration
func (l *Logger) HandleLeave(ctx context.Context, ev platform.MemberEvent) {
	m := ev.Member

	footer := "Membership duration unknown"
	if !m.JoinedAt.IsZero() {
		if d := l.clock.Now().Sub(m.JoinedAt); d >= 0 {
			footer = "Was with us " + FormatDuration(d)
		}
	}

	embed := &platform.Embed{
		Title:       "😥 A member has left us...",
		Description: fmt.Sprintf("Thanks and see you soon **%s** (%s)!", m.DisplayName, m.Username),
		Color:       0xff8c00,
		Thumbnail:   m.AvatarURL,
		Footer:      footer,
	}
	if _, err := l.client.SendMessage(ctx, l.cfg.DeparturesChannel, platform.Message{Embed: embed}); err != nil {
		l.logger.Error("departure embed failed", slog.String("user", string(m.ID)), slog.String("error", err.Error()))
		return
	}
	l.logger.Info("member left", slog.String("user", string(m.ID)))
}

// FormatDuration renders a duration as "for X days, Y hours and Z minutes",
// dropping zero units. Sub-minute durations get a fixed phrase.
func FormatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	switch len(parts) {
	case 0:
		return "for a few moments"
	case 1:
		return "for " + parts[0]
	default:
		return "for " + strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
