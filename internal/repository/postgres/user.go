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

var _ model.UserStore = (*UserRepository)(nil)

const selectUser = `SELECT u.id, u.email, COALESCE(c.password_hash, ''), u.role, u.name, u.country, u.phone,
			  u.date_of_birth, u.created_at, u.updated_at
			  FROM users u LEFT JOIN credentials c ON c.user_id = u.id`

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := getUserByID(ctx, r.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// Create inserts the identity and, when PasswordHash is set, its credential.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	var saved model.User
	err := dbx.WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `INSERT INTO users (id, email, role, name, country, phone, date_of_birth, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

		_, err := tx.ExecContext(ctx, query,
			user.ID, user.Email, string(user.Role), user.Name, user.Country, user.Phone,
			nullTime(user.DateOfBirth), user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if pgErrorCode(err) == codeUniqueViolation {
				return model.ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		if user.PasswordHash != "" {
			if err := upsertCredential(ctx, tx, user.ID, user.PasswordHash, user.UpdatedAt); err != nil {
				return err
			}
		}

		saved, err = getUserByID(ctx, tx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to read created user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// UpdatePassword stores passwordHash as the identity's credential, creating
// the credential row when it does not exist yet.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (model.User, error) {
	var saved model.User
	err := dbx.WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = $2 WHERE id = $1`, id, now)
		if err != nil {
			return fmt.Errorf("failed to touch user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrNotFound
		}

		if err := upsertCredential(ctx, tx, id, passwordHash, now); err != nil {
			return err
		}

		saved, err = getUserByID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to read updated user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update password: %w", err)
	}

	return saved, nil
}

// List returns every identity, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Update overwrites the profile fields of user. The credential is left as is.
func (r *UserRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	var saved model.User
	err := dbx.WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `UPDATE users SET email = $2, role = $3, name = $4, country = $5, phone = $6,
			  date_of_birth = $7, updated_at = $8 WHERE id = $1`

		res, err := tx.ExecContext(ctx, query,
			user.ID, user.Email, string(user.Role), user.Name, user.Country, user.Phone,
			nullTime(user.DateOfBirth), user.UpdatedAt,
		)
		if err != nil {
			if pgErrorCode(err) == codeUniqueViolation {
				return model.ErrAlreadyExists
			}
			return fmt.Errorf("failed to update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrNotFound
		}

		saved, err = getUserByID(ctx, tx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to read updated user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrAlreadyExists) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}

	return nil
}

func getUserByID(ctx context.Context, db dbx.DBTX, id uuid.UUID) (model.User, error) {
	return scanUser(db.QueryRowContext(ctx, selectUser+` WHERE u.id = $1`, id))
}

func upsertCredential(ctx context.Context, db dbx.DBTX, userID uuid.UUID, passwordHash string, now time.Time) error {
	query := `INSERT INTO credentials (user_id, password_hash, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`

	if _, err := db.ExecContext(ctx, query, userID, passwordHash, now); err != nil {
		if pgErrorCode(err) == codeForeignKeyViolation {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user model.User
		role string
		dob  sql.NullTime
	)

	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &role, &user.Name, &user.Country, &user.Phone,
		&dob, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	user.Role = model.Role(role)
	if dob.Valid {
		user.DateOfBirth = dob.Time
	}
	return user, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
