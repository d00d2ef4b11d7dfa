package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

const (
	spoolPrefix      = "outbox/"
	spoolContentType = "message/rfc822"
	resetSubject     = "Set your password"
)

var _ model.Notifier = (*Spool)(nil)

// Spool renders reset notifications as RFC 5322 messages and drops them into
// object storage, where a mail relay picks them up.
type Spool struct {
	storage model.ObjectStorage
	from    string
	logger  *logger.Logger
	now     func() time.Time
}

func NewSpool(storage model.ObjectStorage, from string, logger *logger.Logger) *Spool {
	return &Spool{
		storage: storage,
		from:    from,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Spool) SendPasswordResetEmail(ctx context.Context, email string, link string) error {
	to, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	from, err := mail.ParseAddress(s.from)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	id := uuid.New()
	msg := s.render(id, from, to, link)
	key := spoolPrefix + id.String() + ".eml"

	if err := s.storage.Put(ctx, key, spoolContentType, msg); err != nil {
		s.logger.Error("Notifier: failed to spool reset email",
			"to", email,
			"error", err.Error())
		return fmt.Errorf("failed to spool message: %w", err)
	}

	s.logger.Debug("Notifier: reset email spooled",
		"to", email,
		"key", key)
	return nil
}

func (s *Spool) render(id uuid.UUID, from, to *mail.Address, link string) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", resetSubject))
	header("Date", s.now().UTC().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@valhalla-auth>", id))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	b.WriteString("A password change was requested for your account.\r\n\r\n")
	b.WriteString("Follow the link below to set a new password:\r\n")
	b.WriteString(link)
	b.WriteString("\r\n\r\nIf you did not request this, ignore this message.\r\n")

	return b.Bytes()
}
