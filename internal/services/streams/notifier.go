package streams

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Config holds the stream announcement settings
type Config struct {
	AnnounceChannel model.ChannelID
	PingRole        model.RoleID // optional
}

// Notifier announces live streams of members holding the streamer
// capability. An in-memory live set dedupes repeat presence flaps; the set
// is process-local and resets on restart, which at worst re-announces an
// ongoing stream once.
type Notifier struct {
	client platform.Client
	caps   *capability.Set
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	live map[model.UserID]struct{}
}

// NewNotifier creates a stream notifier
func NewNotifier(client platform.Client, caps *capability.Set, clk clock.Clock, cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		client: client,
		caps:   caps,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
		live:   make(map[model.UserID]struct{}),
	}
}

// HandlePresence processes a presence change: start of a stream on a
// watched platform is announced once; end of stream clears the live entry.
func (n *Notifier) HandlePresence(ctx context.Context, ev platform.PresenceEvent) {
	member, err := n.client.Member(ctx, ev.User)
	if err != nil {
		if !errors.Is(err, model.ErrMemberNotFound) {
			n.logger.Warn("presence member lookup failed", slog.String("user", string(ev.User)), slog.String("error", err.Error()))
		}
		return
	}

	if !n.caps.Has(member, capability.Streamer) {
		// Losing the role drops the member from the live set so a later
		// re-grant starts from a clean slate.
		n.clearLive(ev.User)
		return
	}

	if ev.Stream == nil {
		if n.clearLive(ev.User) {
			n.logger.Info("stream ended", slog.String("user", string(ev.User)))
		}
		return
	}

	if !watchedPlatform(ev.Stream.Platform) {
		return
	}
	if !n.markLive(ev.User) {
		return // already announced
	}

	n.announce(ctx, member, ev.Stream)
}

// Live reports whether the user is currently tracked as streaming
func (n *Notifier) Live(user model.UserID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.live[user]
	return ok
}

func (n *Notifier) markLive(user model.UserID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.live[user]; ok {
		return false
	}
	n.live[user] = struct{}{}
	return true
}

func (n *Notifier) clearLive(user model.UserID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.live[user]; !ok {
		return false
	}
	delete(n.live, user)
	return true
}

func watchedPlatform(p string) bool {
	switch strings.ToLower(p) {
	case "twitch", "youtube":
		return true
	}
	return false
}

func (n *Notifier) announce(ctx context.Context, member *platform.Member, stream *platform.StreamInfo) {
	description := "**" + stream.Title + "**\n"
	if stream.Details != "" {
		description += stream.Details
	} else {
		description += "Watch now!"
	}

	color := 0xff0000 // youtube red
	if strings.EqualFold(stream.Platform, "twitch") {
		color = 0x9146ff
	}

	now := n.clock.Now().UTC()
	embed := &platform.Embed{
		Title:       "🔴 " + member.DisplayName + " is live!",
		Description: description,
		URL:         stream.URL,
		Color:       color,
		Thumbnail:   member.AvatarURL,
		Footer:      "Platform: " + stream.Platform,
		Timestamp:   &now,
	}
	if stream.Game != "" && stream.Game != stream.Title {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Game", Value: stream.Game})
	}

	msg := platform.Message{Embed: embed}
	if n.cfg.PingRole != "" {
		msg.Content = platform.MentionRole(n.cfg.PingRole)
	}

	if _, err := n.client.SendMessage(ctx, n.cfg.AnnounceChannel, msg); err != nil {
		n.logger.Error("stream announcement failed", slog.String("user", string(member.ID)), slog.String("error", err.Error()))
		// Roll the live mark back so the next presence event retries.
		n.clearLive(member.ID)
		return
	}
	n.logger.Info("stream announced",
		slog.String("user", string(member.ID)),
		slog.String("platform", stream.Platform),
		slog.String("url", stream.URL))
}
