package model

import (
	"context"
	"time"
)

// RevocationStore keeps a denylist of token IDs that must no longer be
// accepted even though their signature and expiry are still valid.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
