package memory

import (
	"context"
	"sync"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	profiles     map[model.UserID]*model.PlayerProfile
	rulesMessage model.MessageID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		profiles: make(map[model.UserID]*model.PlayerProfile),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.UserID]; ok {
		return model.ErrAlreadyRegistered
	}
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, user model.UserID) (*model.PlayerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[user]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Storage) SetRulesMessage(ctx context.Context, message model.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rulesMessage = message
	return nil
}

func (s *Storage) RulesMessage(ctx context.Context) (model.MessageID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rulesMessage == "" {
		return "", model.ErrRulesMessageNotSet
	}
	return s.rulesMessage, nil
}
