package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Gateway owns the discordgo session lifecycle and translates gateway
// events to the platform event types. Events outside the configured guild
// are dropped.
type Gateway struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger
}

var _ platform.Gateway = (*Gateway)(nil)

// NewGateway creates a session for the bot token, configured with the
// intents the workflows need.
func NewGateway(token, guildID string, logger *slog.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentGuildPresences |
		discordgo.IntentMessageContent

	return &Gateway{session: session, guildID: guildID, logger: logger}, nil
}

// Session exposes the underlying session for the REST client
func (g *Gateway) Session() *discordgo.Session {
	return g.session
}

// Run connects with exponential backoff and dispatches events until ctx is
// cancelled. Each handler invocation runs on its own goroutine, matching
// the platform contract that event handling never blocks the gateway read
// loop.
func (g *Gateway) Run(ctx context.Context, h platform.Handlers) error {
	g.attach(ctx, h)

	connect := func() error {
		if err := g.session.Open(); err != nil {
			g.logger.Warn("gateway connect failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 5 * time.Minute
	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("connecting to gateway: %w", err)
	}
	g.logger.Info("gateway connected")

	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		g.logger.Warn("gateway close failed", slog.String("error", err.Error()))
	}
	return nil
}

func (g *Gateway) attach(ctx context.Context, h platform.Handlers) {
	g.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Ready) {
		if h.Ready != nil {
			go h.Ready(ctx)
		}
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if h.Message == nil || m.GuildID != g.guildID {
			return
		}
		ev := platform.MessageEvent{
			ID:        model.MessageID(m.ID),
			Channel:   model.ChannelID(m.ChannelID),
			Author:    model.UserID(m.Author.ID),
			AuthorBot: m.Author.Bot,
			Content:   m.Content,
		}
		if m.Member != nil {
			member := *m.Member
			member.User = m.Author
			ev.Member = NewClient(s, g.guildID, g.logger).translateMember(&member)
		}
		go h.Message(ctx, ev)
	})

	g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if h.Interaction == nil || i.Type != discordgo.InteractionMessageComponent || i.GuildID != g.guildID {
			return
		}
		data := i.MessageComponentData()
		inter := platform.Interaction{
			ID:          i.ID,
			Token:       i.Token,
			ComponentID: data.CustomID,
			Values:      data.Values,
			Channel:     model.ChannelID(i.ChannelID),
		}
		if i.Message != nil {
			inter.Message = model.MessageID(i.Message.ID)
		}
		if i.Member != nil {
			inter.User = model.UserID(i.Member.User.ID)
			inter.Member = NewClient(s, g.guildID, g.logger).translateMember(i.Member)
		} else if i.User != nil {
			inter.User = model.UserID(i.User.ID)
		}
		go h.Interaction(ctx, inter)
	})

	g.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if h.ReactionAdd == nil || r.GuildID != g.guildID {
			return
		}
		if s.State.User != nil && r.UserID == s.State.User.ID {
			return
		}
		go h.ReactionAdd(ctx, platform.ReactionEvent{
			Channel: model.ChannelID(r.ChannelID),
			Message: model.MessageID(r.MessageID),
			User:    model.UserID(r.UserID),
			Emoji:   r.Emoji.Name,
		})
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if h.MemberJoin == nil || m.GuildID != g.guildID {
			return
		}
		client := NewClient(s, g.guildID, g.logger)
		count := 0
		if g2, err := s.State.Guild(g.guildID); err == nil {
			count = g2.MemberCount
		}
		go h.MemberJoin(ctx, platform.MemberEvent{
			Member:      *client.translateMember(m.Member),
			MemberCount: count,
		})
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if h.MemberLeave == nil || m.GuildID != g.guildID {
			return
		}
		client := NewClient(s, g.guildID, g.logger)
		go h.MemberLeave(ctx, platform.MemberEvent{
			Member: *client.translateMember(m.Member),
		})
	})

	g.session.AddHandler(func(s *discordgo.Session, p *discordgo.PresenceUpdate) {
		if h.PresenceUpdate == nil || p.GuildID != g.guildID || p.User == nil {
			return
		}
		go h.PresenceUpdate(ctx, platform.PresenceEvent{
			User:   model.UserID(p.User.ID),
			Stream: extractStream(p.Activities),
		})
	})
}

// extractStream finds the first streaming activity, or nil
func extractStream(activities []*discordgo.Activity) *platform.StreamInfo {
	for _, a := range activities {
		if a == nil || a.Type != discordgo.ActivityTypeStreaming {
			continue
		}
		return &platform.StreamInfo{
			Title:    a.Name,
			URL:      a.URL,
			Details:  a.Details,
			Game:     a.State,
			Platform: streamPlatform(a.URL),
		}
	}
	return nil
}

// streamPlatform derives the platform name from the stream URL, since the
// gateway payload does not carry it explicitly.
func streamPlatform(url string) string {
	switch {
	case strings.Contains(url, "twitch.tv"):
		return "Twitch"
	case strings.Contains(url, "youtube.com"), strings.Contains(url, "youtu.be"):
		return "YouTube"
	default:
		return ""
	}
}
