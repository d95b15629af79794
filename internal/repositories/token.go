package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/climatescope/climatescope/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RevokedTokenRepository keeps signed-out session tokens in Redis until
// their natural expiry, so a logged-out token cannot be replayed.
type RevokedTokenRepository struct {
	client *redis.Client
}

// NewRevokedTokenRepository creates a new repository instance.
func NewRevokedTokenRepository(client *redis.Client) *RevokedTokenRepository {
	return &RevokedTokenRepository{client: client}
}

// Revoke marks a token id as revoked for the remaining token lifetime.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired, nothing to store.
		return nil
	}

	key := fmt.Sprintf("revoked_token:%s", tokenID)
	err := r.client.Set(ctx, key, "1", ttl).Err()

	logger.Log.Infow(
		"key", key,
		"ttl", ttl,
		"error", err,
	)

	return err
}

// IsRevoked reports whether a token id has been revoked.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	key := fmt.Sprintf("revoked_token:%s", tokenID)

	_, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		logger.Log.Errorw("revocation lookup failed", "key", key, "error", err)
		return false, err
	}

	return true, nil
}
