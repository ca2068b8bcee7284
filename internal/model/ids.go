package model

// Platform identifiers are opaque snowflake strings, matching the wire form
// used by the chat platform.

type UserID string

type ChannelID string

type MessageID string

type RoleID string

// WorkflowKind distinguishes the per-user exclusive workflow channels
type WorkflowKind string

const (
	WorkflowTicket       WorkflowKind = "ticket"
	WorkflowEvaluation   WorkflowKind = "evaluation"
	WorkflowRegistration WorkflowKind = "registration"
)
