package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// FakeMessage is a message recorded by the fake client
type FakeMessage struct {
	ID               model.MessageID
	Msg              platform.Message
	ControlsDisabled bool
}

// FakeChannel is a channel held by the fake client
type FakeChannel struct {
	ID           model.ChannelID
	Name         string
	Topic        string
	Messages     []*FakeMessage
	Deleted      bool
	DeleteReason string
}

// Reaction records an AddReaction call
type Reaction struct {
	Channel model.ChannelID
	Message model.MessageID
	Emoji   string
}

// FakeClient is an in-memory platform.Client for tests. State is inspected
// directly; individual calls can be made to fail via the Fail* fields.
type FakeClient struct {
	mu sync.Mutex

	Channels       map[model.ChannelID]*FakeChannel
	Members        map[model.UserID]*platform.Member
	RolePositions  map[model.RoleID]int
	BotTopPosition int
	GuildMembers   int

	DMs        map[model.UserID][]string
	Kicked     []model.UserID
	Ephemerals []string
	Reactions  []Reaction

	FailSend          error
	FailCreateChannel error
	FailAddRole       error
	FailRemoveRole    error
	FailKick          error
	FailDM            error
	FailPurge         error
	FailDeleteChannel error

	nextChannel int
	nextMessage int
}

var _ platform.Client = (*FakeClient)(nil)

// NewFakeClient creates an empty fake client
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Channels:       make(map[model.ChannelID]*FakeChannel),
		Members:        make(map[model.UserID]*platform.Member),
		RolePositions:  make(map[model.RoleID]int),
		DMs:            make(map[model.UserID][]string),
		BotTopPosition: 100,
	}
}

// AddMember registers a guild member with the given roles
func (f *FakeClient) AddMember(id model.UserID, roles ...model.RoleID) *platform.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &platform.Member{
		ID:          id,
		Username:    "user-" + string(id),
		DisplayName: "User " + string(id),
		Roles:       roles,
	}
	f.Members[id] = m
	return m
}

// AddChannel registers an existing channel
func (f *FakeClient) AddChannel(id model.ChannelID, topic string) *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &FakeChannel{ID: id, Topic: topic}
	f.Channels[id] = ch
	return ch
}

// Channel returns a channel by ID, or nil
func (f *FakeClient) Channel(id model.ChannelID) *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Channels[id]
}

// LastMessage returns the most recent message in a channel, or nil
func (f *FakeClient) LastMessage(id model.ChannelID) *FakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := f.Channels[id]
	if ch == nil || len(ch.Messages) == 0 {
		return nil
	}
	return ch.Messages[len(ch.Messages)-1]
}

func (f *FakeClient) SendMessage(ctx context.Context, channel model.ChannelID, msg platform.Message) (model.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend != nil {
		return "", f.FailSend
	}
	ch, ok := f.Channels[channel]
	if !ok || ch.Deleted {
		return "", model.ErrChannelNotFound
	}
	f.nextMessage++
	id := model.MessageID(fmt.Sprintf("msg-%d", f.nextMessage))
	ch.Messages = append(ch.Messages, &FakeMessage{ID: id, Msg: msg})
	return id, nil
}

func (f *FakeClient) DeleteMessage(ctx context.Context, channel model.ChannelID, message model.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channel]
	if !ok {
		return model.ErrChannelNotFound
	}
	for i, m := range ch.Messages {
		if m.ID == message {
			ch.Messages = append(ch.Messages[:i], ch.Messages[i+1:]...)
			return nil
		}
	}
	return model.ErrMessageNotFound
}

func (f *FakeClient) DisableControls(ctx context.Context, channel model.ChannelID, message model.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channel]
	if !ok {
		return model.ErrChannelNotFound
	}
	for _, m := range ch.Messages {
		if m.ID == message {
			m.ControlsDisabled = true
			return nil
		}
	}
	return model.ErrMessageNotFound
}

func (f *FakeClient) PurgeChannel(ctx context.Context, channel model.ChannelID, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailPurge != nil {
		return 0, f.FailPurge
	}
	ch, ok := f.Channels[channel]
	if !ok || ch.Deleted {
		return 0, model.ErrChannelNotFound
	}
	n := len(ch.Messages)
	if n > limit {
		n = limit
	}
	ch.Messages = ch.Messages[:len(ch.Messages)-n]
	return n, nil
}

func (f *FakeClient) AddReaction(ctx context.Context, channel model.ChannelID, message model.MessageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, Reaction{Channel: channel, Message: message, Emoji: emoji})
	return nil
}

func (f *FakeClient) CreateChannel(ctx context.Context, req platform.ChannelRequest) (model.ChannelID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateChannel != nil {
		return "", f.FailCreateChannel
	}
	f.nextChannel++
	id := model.ChannelID(fmt.Sprintf("chan-%d", f.nextChannel))
	f.Channels[id] = &FakeChannel{ID: id, Name: req.Name, Topic: req.Topic}
	return id, nil
}

func (f *FakeClient) DeleteChannel(ctx context.Context, channel model.ChannelID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeleteChannel != nil {
		return f.FailDeleteChannel
	}
	ch, ok := f.Channels[channel]
	if !ok || ch.Deleted {
		return model.ErrChannelNotFound
	}
	ch.Deleted = true
	ch.DeleteReason = reason
	return nil
}

func (f *FakeClient) ChannelExists(ctx context.Context, channel model.ChannelID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channel]
	return ok && !ch.Deleted, nil
}

func (f *FakeClient) ChannelTopic(ctx context.Context, channel model.ChannelID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channel]
	if !ok || ch.Deleted {
		return "", model.ErrChannelNotFound
	}
	return ch.Topic, nil
}

func (f *FakeClient) Member(ctx context.Context, user model.UserID) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Members[user]
	if !ok {
		return nil, model.ErrMemberNotFound
	}
	cp := *m
	cp.Roles = append([]model.RoleID(nil), m.Roles...)
	return &cp, nil
}

func (f *FakeClient) MemberCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GuildMembers > 0 {
		return f.GuildMembers, nil
	}
	return len(f.Members), nil
}

func (f *FakeClient) AddRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAddRole != nil {
		return f.FailAddRole
	}
	m, ok := f.Members[user]
	if !ok {
		return model.ErrMemberNotFound
	}
	for _, r := range m.Roles {
		if r == role {
			return nil
		}
	}
	m.Roles = append(m.Roles, role)
	return nil
}

func (f *FakeClient) RemoveRole(ctx context.Context, user model.UserID, role model.RoleID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRemoveRole != nil {
		return f.FailRemoveRole
	}
	m, ok := f.Members[user]
	if !ok {
		return model.ErrMemberNotFound
	}
	for i, r := range m.Roles {
		if r == role {
			m.Roles = append(m.Roles[:i], m.Roles[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *FakeClient) Kick(ctx context.Context, user model.UserID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailKick != nil {
		return f.FailKick
	}
	if _, ok := f.Members[user]; !ok {
		return model.ErrMemberNotFound
	}
	delete(f.Members, user)
	f.Kicked = append(f.Kicked, user)
	return nil
}

func (f *FakeClient) DirectMessage(ctx context.Context, user model.UserID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDM != nil {
		return f.FailDM
	}
	f.DMs[user] = append(f.DMs[user], content)
	return nil
}

func (f *FakeClient) RolePosition(ctx context.Context, role model.RoleID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.RolePositions[role]
	if !ok {
		return 0, nil
	}
	return pos, nil
}

func (f *FakeClient) BotTopRolePosition(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BotTopPosition, nil
}

func (f *FakeClient) ReplyEphemeral(ctx context.Context, inter platform.Interaction, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ephemerals = append(f.Ephemerals, content)
	return nil
}

func (f *FakeClient) Acknowledge(ctx context.Context, inter platform.Interaction) error {
	return nil
}
