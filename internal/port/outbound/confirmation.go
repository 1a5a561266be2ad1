package outbound

import (
	"context"
	"time"

	"github.com/coursepay/server/internal/model"
)

// ConfirmationTokenPort stores single-use confirmation tokens.
type ConfirmationTokenPort interface {
	// Issue stores the intent under token for ttl.
	Issue(ctx context.Context, token string, intent *model.ConfirmationIntent, ttl time.Duration) error

	// Consume atomically reads and deletes the intent stored under token.
	// Returns nil, nil if the token is unknown, used or expired.
	Consume(ctx context.Context, token string) (*model.ConfirmationIntent, error)
}
