package storage

import (
	"context"

	"github.com/vpgclub/clubbot/internal/model"
)

// Storage defines the interface for data persistence. Profiles are
// write-once; the rules marker is replaced whenever the rules message is
// reposted.
type Storage interface {
	// Profile operations. SaveProfile returns model.ErrAlreadyRegistered
	// when a profile already exists for the user.
	SaveProfile(ctx context.Context, profile *model.PlayerProfile) error
	GetProfile(ctx context.Context, user model.UserID) (*model.PlayerProfile, error)

	// Rules-acceptance marker operations
	SetRulesMessage(ctx context.Context, message model.MessageID) error
	RulesMessage(ctx context.Context) (model.MessageID, error)
}
