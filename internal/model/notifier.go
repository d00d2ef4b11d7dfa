package model

import "context"

// Notifier delivers out-of-band messages to identities.
type Notifier interface {
	SendPasswordResetEmail(ctx context.Context, email string, link string) error
}
