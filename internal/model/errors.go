package model

import "errors"

// Common errors used across the application
var (
	// Profile errors
	ErrProfileNotFound   = errors.New("player profile not found")
	ErrAlreadyRegistered = errors.New("player is already registered")

	// Rules marker errors
	ErrRulesMessageNotSet = errors.New("rules message not set")

	// Authorization errors
	ErrNotAuthorized         = errors.New("actor lacks the required capability")
	ErrInsufficientHierarchy = errors.New("bot role does not outrank the target role")

	// Workflow errors
	ErrDialogTimeout    = errors.New("dialog step timed out")
	ErrDecisionInFlight = errors.New("a terminal decision is already being processed")
	ErrTagNotFound      = errors.New("channel carries no workflow tag")

	// Platform lookup errors
	ErrChannelNotFound = errors.New("channel not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrMessageNotFound = errors.New("message not found")

	// Evaluation errors
	ErrSubjectNotOnTrial = errors.New("subject does not hold the on-trial role")
)
