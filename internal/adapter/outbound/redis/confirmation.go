package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/redis/go-redis/v9"
)

const confirmationKeyPrefix = "orders:confirm:"

// ErrTokenExists is returned when a token is issued twice.
var ErrTokenExists = errors.New("confirmation token already issued")

// confirmationStore implements outbound.ConfirmationTokenPort.
type confirmationStore struct {
	client redis.UniversalClient
}

// NewConfirmationStore creates a new confirmation token store adapter.
func NewConfirmationStore(client redis.UniversalClient) outbound.ConfirmationTokenPort {
	return &confirmationStore{client: client}
}

func (s *confirmationStore) Issue(ctx context.Context, token string, intent *model.ConfirmationIntent, ttl time.Duration) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal confirmation intent: %w", err)
	}
	ok, err := s.client.SetNX(ctx, confirmationKeyPrefix+token, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store confirmation token: %w", err)
	}
	if !ok {
		return ErrTokenExists
	}
	return nil
}

func (s *confirmationStore) Consume(ctx context.Context, token string) (*model.ConfirmationIntent, error) {
	data, err := s.client.GetDel(ctx, confirmationKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume confirmation token: %w", err)
	}

	var intent model.ConfirmationIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation intent: %w", err)
	}
	return &intent, nil
}

// Compile-time check
var _ outbound.ConfirmationTokenPort = (*confirmationStore)(nil)
