package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/valhalla-auth/internal/model"
)

const (
	qDropUserTokens = `DELETE FROM password_reset_tokens WHERE user_id = \$1`
	qInsertToken    = `INSERT INTO password_reset_tokens \(id, token, user_id, expires_at, created_at\)`
	qSelectToken    = `SELECT .+ FROM password_reset_tokens t JOIN users u ON u\.id = t\.user_id WHERE t\.token = \$1`
	qClaimToken     = `DELETE FROM password_reset_tokens WHERE token = \$1 AND expires_at >= \$2 RETURNING user_id`
	qDeleteToken    = `DELETE FROM password_reset_tokens WHERE token = \$1`
	qDeleteExpired  = `DELETE FROM password_reset_tokens WHERE expires_at < \$1`
)

func TestResetTokenRepository_Create(t *testing.T) {
	now := time.Now().UTC()
	token := model.ResetToken{
		ID:        uuid.New(),
		Token:     "abc",
		UserID:    uuid.New(),
		ExpiresAt: now.Add(model.ResetTokenTTL),
		CreatedAt: now,
	}

	t.Run("replaces previous tokens", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectExec(qDropUserTokens).WithArgs(token.UserID).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(qInsertToken).
			WithArgs(token.ID, "abc", token.UserID, token.ExpiresAt, token.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewResetTokenRepository(conn).Create(context.Background(), token))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectExec(qDropUserTokens).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(qInsertToken).WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})
		mock.ExpectRollback()

		err := NewResetTokenRepository(conn).Create(context.Background(), token)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResetTokenRepository_GetByToken(t *testing.T) {
	now := time.Now().UTC()
	id, userID := uuid.New(), uuid.New()
	columns := []string{"id", "token", "user_id", "expires_at", "created_at", "email", "role"}

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
		errText string
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(qSelectToken).WithArgs("abc").WillReturnRows(
					sqlmock.NewRows(columns).AddRow(id.String(), "abc", userID.String(), now.Add(time.Hour), now, "a@b.com", "USER"),
				)
			},
		},
		{
			name: "not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(qSelectToken).WithArgs("abc").WillReturnError(sql.ErrNoRows)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name: "db error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(qSelectToken).WithArgs("abc").WillReturnError(errors.New("db down"))
			},
			errText: "failed to get reset token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newMockConnection(t)
			tt.setup(mock)

			got, err := NewResetTokenRepository(conn).GetByToken(context.Background(), "abc")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, id, got.ID)
				assert.Equal(t, userID, got.UserID)
				assert.Equal(t, userID, got.User.ID)
				assert.Equal(t, "a@b.com", got.User.Email)
				assert.Equal(t, model.RoleUser, got.User.Role)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestResetTokenRepository_Consume(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	t.Run("stores password and drops tokens", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(qClaimToken).WithArgs("abc", now).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(userID.String()))
		mock.ExpectExec(qUpsertCred).WithArgs(userID, "hash", now).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(qTouchUser).WithArgs(userID, now).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(qDropUserTokens).WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		got, err := NewResetTokenRepository(conn).Consume(context.Background(), "abc", "hash", now)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already consumed or expired", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(qClaimToken).WithArgs("abc", now).WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
		mock.ExpectRollback()

		_, err := NewResetTokenRepository(conn).Consume(context.Background(), "abc", "hash", now)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credential failure keeps the token", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(qClaimToken).WithArgs("abc", now).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(userID.String()))
		mock.ExpectExec(qUpsertCred).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := NewResetTokenRepository(conn).Consume(context.Background(), "abc", "hash", now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResetTokenRepository_Delete(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectExec(qDeleteToken).WithArgs("abc").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewResetTokenRepository(conn).Delete(context.Background(), "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepository_DeleteExpired(t *testing.T) {
	now := time.Now().UTC()

	t.Run("returns removed count", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectExec(qDeleteExpired).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := NewResetTokenRepository(conn).DeleteExpired(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("db error", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectExec(qDeleteExpired).WithArgs(now).WillReturnError(errors.New("db down"))

		_, err := NewResetTokenRepository(conn).DeleteExpired(context.Background(), now)
		assert.Error(t, err)
	})
}
