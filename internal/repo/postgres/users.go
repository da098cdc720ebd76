package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baybe/cleanbook/internal/domain/user"
	"github.com/baybe/cleanbook/internal/observability"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, email, password_hash, reset_token_hash, reset_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// Create inserts a new user. Email uniqueness is enforced by the unique
// index on lower(email); a violation surfaces as ErrEmailAlreadyUsed so the
// caller never needs a racy check-then-insert.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error

		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
			email,
		))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error

		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// SetResetToken stores the hash of an outstanding reset secret together with
// its expiry. Both columns move together, matching the invariant that they
// are either both present or both absent.
func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.observe("users.set_reset_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW()
			 WHERE id = $1`,
			id, tokenHash, expiresAt,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}

// GetByResetTokenHash returns the user holding an unexpired reset token with
// the given hash. "No match" and "expired" are indistinguishable here on
// purpose.
func (r *UsersRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_reset_token", func() error {
		var err error

		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users
			 WHERE reset_token_hash = $1 AND reset_expires_at > NOW()`,
			tokenHash,
		))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// UpdatePassword swaps in a new password hash and clears the reset fields in
// the same statement, which makes a reset token single-use.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
			 WHERE id = $1`,
			id, passwordHash,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}
