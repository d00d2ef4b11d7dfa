// Package notify delivers password reset links to identities.
package notify

import (
	"context"
	"net/url"

	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

var _ model.Notifier = (*Log)(nil)

// Log writes reset notifications to the application log with the token
// masked. It is meant for development setups without a mail relay.
type Log struct {
	logger *logger.Logger
}

func NewLog(logger *logger.Logger) *Log {
	return &Log{logger: logger}
}

func (n *Log) SendPasswordResetEmail(_ context.Context, email string, link string) error {
	n.logger.Info("Notifier: password reset email",
		"to", email,
		"link", RedactLink(link))
	return nil
}

// RedactLink masks the token query parameter of a reset link.
func RedactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return model.RedactedPassword
	}

	q := u.Query()
	if q.Has("token") {
		q.Set("token", model.RedactedPassword)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
