package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/valhalla-auth/internal/model"
)

const revokedPrefix = "revoked:"

var _ model.RevocationStore = (*RevocationRepository)(nil)

type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
}

// RevocationRepository keeps revoked token IDs in Redis until the moment the
// token would have expired anyway.
type RevocationRepository struct {
	client redisAPI
	now    func() time.Time
}

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRevocationRepository(client redisAPI) *RevocationRepository {
	return &RevocationRepository{
		client: client,
		now:    time.Now,
	}
}

func (r *RevocationRepository) key(tokenID string) string {
	return revokedPrefix + tokenID
}

// Revoke denies tokenID until the given time. Tokens already past until are
// rejected by verification, so nothing is stored for them.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("revocation: missing token id")
	}

	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, r.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
