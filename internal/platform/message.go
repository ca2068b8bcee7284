package platform

import (
	"time"

	"github.com/vpgclub/clubbot/internal/model"
)

// ButtonStyle mirrors the platform's button style ordinals
type ButtonStyle int

const (
	ButtonPrimary   ButtonStyle = 1
	ButtonSecondary ButtonStyle = 2
	ButtonSuccess   ButtonStyle = 3
	ButtonDanger    ButtonStyle = 4
)

// Button is an interactive control attached to a message. ID is the durable
// custom identifier routed back on click.
type Button struct {
	ID       string
	Label    string
	Style    ButtonStyle
	Emoji    string
	Disabled bool
}

// SelectOption is one entry of a select menu
type SelectOption struct {
	Label string
	Value string
	Emoji string
}

// SelectMenu is a single- or multi-choice control. MinValues/MaxValues bound
// the selection cardinality on the platform side as well as ours.
type SelectMenu struct {
	ID          string
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []SelectOption
}

// EmbedField is a titled section of an embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Thumbnail   string
	Image       string
	Footer      string
	Fields      []EmbedField
	Timestamp   *time.Time
}

// Message is an outbound message with optional rich content and controls
type Message struct {
	Content string
	Embed   *Embed
	Buttons []Button
	Select  *SelectMenu
}

// Text builds a plain message
func Text(content string) Message {
	return Message{Content: content}
}

// Member is the platform's view of a guild member
type Member struct {
	ID          model.UserID
	Username    string
	DisplayName string
	AvatarURL   string
	Roles       []model.RoleID
	JoinedAt    time.Time
	IsBot       bool
	IsAdmin     bool
}

// HasRole reports whether the member holds the given role
func (m *Member) HasRole(role model.RoleID) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}
