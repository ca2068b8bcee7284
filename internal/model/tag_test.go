package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRoundTrip(t *testing.T) {
	tag := ChannelTag{
		Kind:    WorkflowEvaluation,
		Subject: "123456789012345678",
		Creator: "876543210987654321",
	}

	parsed, err := ParseTag("Evaluation of somePlayer. " + tag.Format())
	require.NoError(t, err)
	assert.Equal(t, tag, parsed)
}

func TestParseTagMissing(t *testing.T) {
	_, err := ParseTag("just a normal channel topic")
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestParseTagMalformed(t *testing.T) {
	cases := []string{
		"[clubbot:evaluation subject=abc creator=123]",
		"[clubbot:banquet subject=123 creator=456]",
		"[clubbot:evaluation subject=123]",
		"",
	}
	for _, topic := range cases {
		_, err := ParseTag(topic)
		assert.ErrorIs(t, err, ErrTagNotFound, "topic: %q", topic)
	}
}

func TestParseTagTicket(t *testing.T) {
	tag := ChannelTag{Kind: WorkflowTicket, Subject: "42", Creator: "42"}
	parsed, err := ParseTag("Support ticket. " + tag.Format() + " opened 2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, WorkflowTicket, parsed.Kind)
	assert.Equal(t, UserID("42"), parsed.Subject)
}
