package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/valhalla-auth/internal/dbx"
	"github.com/dtroode/valhalla-auth/internal/model"
)

var _ model.ResetTokenStore = (*ResetTokenRepository)(nil)

type ResetTokenRepository struct {
	db *Connection
}

func NewResetTokenRepository(db *Connection) *ResetTokenRepository {
	return &ResetTokenRepository{
		db: db,
	}
}

// Create stores token after dropping every other token of the same user.
func (r *ResetTokenRepository) Create(ctx context.Context, token model.ResetToken) error {
	err := dbx.WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, token.UserID); err != nil {
			return fmt.Errorf("failed to drop previous tokens: %w", err)
		}

		query := `INSERT INTO password_reset_tokens (id, token, user_id, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

		_, err := tx.ExecContext(ctx, query, token.ID, token.Token, token.UserID, token.ExpiresAt, token.CreatedAt)
		if err != nil {
			switch pgErrorCode(err) {
			case codeForeignKeyViolation:
				return model.ErrNotFound
			case codeUniqueViolation:
				return model.ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert token: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (model.ResetToken, error) {
	query := `SELECT t.id, t.token, t.user_id, t.expires_at, t.created_at, u.email, u.role
			  FROM password_reset_tokens t JOIN users u ON u.id = t.user_id
			  WHERE t.token = $1`

	var (
		rt   model.ResetToken
		role string
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt, &rt.User.Email, &role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ResetToken{}, model.ErrNotFound
		}
		return model.ResetToken{}, fmt.Errorf("failed to get reset token: %w", err)
	}

	rt.User.ID = rt.UserID
	rt.User.Role = model.Role(role)
	return rt, nil
}

// Consume deletes the token only while it is still unexpired at now and, in
// the same transaction, stores passwordHash for its owner and drops the
// owner's remaining tokens. Of two concurrent calls for one token exactly one
// gets the row back; the other sees ErrNotFound.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string, passwordHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := dbx.WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `DELETE FROM password_reset_tokens WHERE token = $1 AND expires_at >= $2 RETURNING user_id`
		if err := tx.QueryRowContext(ctx, query, token, now).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to claim token: %w", err)
		}

		if err := upsertCredential(ctx, tx, userID, passwordHash, now); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = $2 WHERE id = $1`, userID, now); err != nil {
			return fmt.Errorf("failed to touch user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to drop remaining tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return uuid.Nil, model.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return userID, nil
}

func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted reset tokens: %w", err)
	}
	return n, nil
}
