package model

import (
	"fmt"
	"regexp"
)

// ChannelTag is a structured ownership marker embedded in a workflow
// channel's topic. It is the durable source of truth for "who is this
// channel about": the in-memory session registry is only a cache and is
// lost on restart, the tag is not.
type ChannelTag struct {
	Kind    WorkflowKind
	Subject UserID
	Creator UserID
}

var tagPattern = regexp.MustCompile(`\[clubbot:(ticket|evaluation|registration) subject=(\d+) creator=(\d+)\]`)

// Format renders the tag in its canonical bracketed form. The result is
// appended to whatever human-readable topic the channel carries.
func (t ChannelTag) Format() string {
	return fmt.Sprintf("[clubbot:%s subject=%s creator=%s]", t.Kind, t.Subject, t.Creator)
}

// ParseTag extracts a ChannelTag from a channel topic. A topic without a
// well-formed tag yields ErrTagNotFound; malformed markers are never a
// crash, just an absent tag.
func ParseTag(topic string) (ChannelTag, error) {
	m := tagPattern.FindStringSubmatch(topic)
	if m == nil {
		return ChannelTag{}, ErrTagNotFound
	}
	return ChannelTag{
		Kind:    WorkflowKind(m[1]),
		Subject: UserID(m[2]),
		Creator: UserID(m[3]),
	}, nil
}
