package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "manimatic:generation:"

// StateStorage implements StateStorage using Redis
type StateStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStateStorage creates a new Redis state storage
func NewStateStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StateStorage {
	return &StateStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a generation (ports.StateStorage interface)
func (s *StateStorage) Save(ctx context.Context, gen *domain.Generation) error {
	data, err := json.Marshal(gen)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}

	if err := s.client.Set(ctx, getKey(gen.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}

	return nil
}

// Get retrieves a generation by ID (ports.StateStorage interface)
func (s *StateStorage) Get(ctx context.Context, id string) (*domain.Generation, error) {
	data, err := s.client.Get(ctx, getKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	var gen domain.Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
	}

	return &gen, nil
}

// Delete removes a generation (ports.StateStorage interface)
func (s *StateStorage) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, getKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	return nil
}

// List returns all stored generations (ports.StateStorage interface)
func (s *StateStorage) List(ctx context.Context) ([]*domain.Generation, error) {
	pattern := keyPrefix + "*"

	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	gens := make([]*domain.Generation, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			// Keys can expire between the scan and the read.
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get generation: %w", err)
		}

		var gen domain.Generation
		if err := json.Unmarshal(data, &gen); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
		}
		gens = append(gens, &gen)
	}

	return gens, nil
}

func getKey(id string) string {
	return keyPrefix + id
}
