package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Itproger-it/url-short/internal/auth/domain"
	autherror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, email)

	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, id)

	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) CreateWithTokens(ctx context.Context, user *domain.User, tokens []domain.IssuedToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return mapInsertError(err, autherror.ErrEmailAlreadyInUse)
	}

	for _, t := range tokens {
		_, err = tx.Exec(ctx, `
			INSERT INTO issued_tokens (jti, user_id, device_id)
			VALUES ($1, $2, $3)
		`, t.JTI, t.UserID, t.DeviceID)
		if err != nil {
			return mapInsertError(err, autherror.ErrJTIConflict)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, attempt_time, successful)
		VALUES ($1, $2, now(), $3)
	`, email, ip, success)
	return err
}

func (r *PostgresRepository) CountRecentFailures(ctx context.Context, email, ip string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM login_attempts
		WHERE email = $1 AND ip_address = $2 AND successful = false AND attempt_time > $3
	`, email, ip, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) Record(ctx context.Context, tokens ...domain.IssuedToken) error {
	for _, t := range tokens {
		_, err := r.db.Exec(ctx, `
			INSERT INTO issued_tokens (jti, user_id, device_id)
			VALUES ($1, $2, $3)
		`, t.JTI, t.UserID, t.DeviceID)
		if err != nil {
			return mapInsertError(err, autherror.ErrJTIConflict)
		}
	}
	return nil
}

func (r *PostgresRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRow(ctx, `
		SELECT revoked FROM issued_tokens WHERE jti = $1
	`, jti).Scan(&revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

func (r *PostgresRepository) RevokeByDevice(ctx context.Context, userID, deviceID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE issued_tokens SET revoked = true
		WHERE user_id = $1 AND device_id = $2 AND NOT revoked
	`, userID, deviceID)
	return err
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE issued_tokens SET revoked = true
		WHERE user_id = $1 AND NOT revoked
	`, userID)
	return err
}

// Rotate runs the revoke-check-and-mark sequence of a refresh under one
// transaction. The row lock on the old jti guarantees that of two
// concurrent rotations of the same token, exactly one commits; the other
// observes revoked=true and takes the reuse path.
func (r *PostgresRepository) Rotate(ctx context.Context, oldJTI, userID, deviceID string, newTokens []domain.IssuedToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var revoked bool
	err = tx.QueryRow(ctx, `
		SELECT revoked FROM issued_tokens WHERE jti = $1 FOR UPDATE
	`, oldJTI).Scan(&revoked)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to lock token row: %w", err)
	}

	if revoked {
		_, err = tx.Exec(ctx, `
			UPDATE issued_tokens SET revoked = true
			WHERE user_id = $1 AND NOT revoked
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to revoke user tokens: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		return autherror.ErrReuseDetected
	}

	_, err = tx.Exec(ctx, `
		UPDATE issued_tokens SET revoked = true
		WHERE user_id = $1 AND device_id = $2 AND NOT revoked
	`, userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to revoke device tokens: %w", err)
	}

	for _, t := range newTokens {
		_, err = tx.Exec(ctx, `
			INSERT INTO issued_tokens (jti, user_id, device_id)
			VALUES ($1, $2, $3)
		`, t.JTI, t.UserID, t.DeviceID)
		if err != nil {
			return mapInsertError(err, autherror.ErrJTIConflict)
		}
	}

	return tx.Commit(ctx)
}

func mapInsertError(err error, onUnique error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return onUnique
	}
	return err
}
