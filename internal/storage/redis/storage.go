package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.PlayerProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	// SetNX keeps profiles write-once; they never expire
	ok, err := s.client.SetNX(ctx, profileKey(profile.UserID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrAlreadyRegistered
	}
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, user model.UserID) (*model.PlayerProfile, error) {
	data, err := s.client.Get(ctx, profileKey(user)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.PlayerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Storage) SetRulesMessage(ctx context.Context, message model.MessageID) error {
	return s.client.Set(ctx, rulesMessageKey, string(message), 0).Err()
}

func (s *Storage) RulesMessage(ctx context.Context) (model.MessageID, error) {
	id, err := s.client.Get(ctx, rulesMessageKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrRulesMessageNotSet
		}
		return "", err
	}
	return model.MessageID(id), nil
}
