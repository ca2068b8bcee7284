package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/storage"
)

const (
	playersFile = "players.json"
	runtimeFile = "runtime.json"
)

// runtimeState is the small runtime document holding the rules marker
type runtimeState struct {
	RulesMessageID model.MessageID `json:"rules_message_id,omitempty"`
}

// Storage persists to two small JSON documents under a data directory.
// Read-modify-write is serialized by a single in-process mutex;
// concurrent external edits are not supported.
type Storage struct {
	mu  sync.Mutex
	dir string
}

// New creates a file storage rooted at dir, creating it if needed
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readProfiles()
	if err != nil {
		return err
	}
	if _, ok := profiles[profile.UserID]; ok {
		return model.ErrAlreadyRegistered
	}
	profiles[profile.UserID] = profile
	return s.writeJSON(playersFile, profiles)
}

func (s *Storage) GetProfile(ctx context.Context, user model.UserID) (*model.PlayerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readProfiles()
	if err != nil {
		return nil, err
	}
	profile, ok := profiles[user]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Storage) SetRulesMessage(ctx context.Context, message model.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readRuntime()
	if err != nil {
		return err
	}
	state.RulesMessageID = message
	return s.writeJSON(runtimeFile, state)
}

func (s *Storage) RulesMessage(ctx context.Context) (model.MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readRuntime()
	if err != nil {
		return "", err
	}
	if state.RulesMessageID == "" {
		return "", model.ErrRulesMessageNotSet
	}
	return state.RulesMessageID, nil
}

func (s *Storage) readProfiles() (map[model.UserID]*model.PlayerProfile, error) {
	profiles := make(map[model.UserID]*model.PlayerProfile)
	if err := s.readJSON(playersFile, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Storage) readRuntime() (runtimeState, error) {
	var state runtimeState
	if err := s.readJSON(runtimeFile, &state); err != nil {
		return runtimeState{}, err
	}
	return state, nil
}

func (s *Storage) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// writeJSON writes via a temp file and rename so a crash mid-write never
// leaves a truncated document.
func (s *Storage) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
