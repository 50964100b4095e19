package postgres

import (
	"context"
	"errors"
	"fmt"

	linkerror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/internal/link/domain"
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

func (r *PostgresRepository) Create(ctx context.Context, link *domain.Link, ownerID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO links (id, key, secret_key, target_url, is_active, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`, link.ID, link.Key, link.SecretKey, link.TargetURL, link.IsActive, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return linkerror.ErrKeyOccupied
		}
		return err
	}

	if ownerID != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO user_links (user_id, link_id)
			VALUES ($1, $2)
		`, ownerID, link.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*domain.Link, error) {
	query := `
		SELECT id, key, secret_key, target_url, is_active, clicks, created_at
		FROM links
		WHERE key = $1 AND is_active
		LIMIT 1;
	`
	return r.scanLink(r.db.QueryRow(ctx, query, key))
}

func (r *PostgresRepository) GetBySecretKey(ctx context.Context, ownerID, secretKey string) (*domain.Link, error) {
	query := `
		SELECT l.id, l.key, l.secret_key, l.target_url, l.is_active, l.clicks, l.created_at
		FROM links l
		JOIN user_links ul ON ul.link_id = l.id
		WHERE ul.user_id = $1 AND l.secret_key = $2 AND l.is_active
		LIMIT 1;
	`
	return r.scanLink(r.db.QueryRow(ctx, query, ownerID, secretKey))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.key, l.secret_key, l.target_url, l.is_active, l.clicks, l.created_at
		FROM links l
		JOIN user_links ul ON ul.link_id = l.id
		WHERE ul.user_id = $1 AND l.is_active
		ORDER BY l.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var l domain.Link
		if err := rows.Scan(&l.ID, &l.Key, &l.SecretKey, &l.TargetURL, &l.IsActive, &l.Clicks, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

func (r *PostgresRepository) Deactivate(ctx context.Context, ownerID, secretKey string) (*domain.Link, error) {
	query := `
		UPDATE links l SET is_active = false
		FROM user_links ul
		WHERE ul.link_id = l.id AND ul.user_id = $1 AND l.secret_key = $2 AND l.is_active
		RETURNING l.id, l.key, l.secret_key, l.target_url, l.is_active, l.clicks, l.created_at;
	`
	return r.scanLink(r.db.QueryRow(ctx, query, ownerID, secretKey))
}

func (r *PostgresRepository) RecordClick(ctx context.Context, key, ip, device string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var linkID string
	err = tx.QueryRow(ctx, `
		UPDATE links SET clicks = clicks + 1
		WHERE key = $1 AND is_active
		RETURNING id
	`, key).Scan(&linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return linkerror.ErrLinkNotFound
		}
		return fmt.Errorf("failed to count click: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO link_metrics (link_id, ip, device, date)
		VALUES ($1, $2, $3, to_char(now(), 'YYYY-MM-DD'))
	`, linkID, ip, device)
	if err != nil {
		return fmt.Errorf("failed to store click metric: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetMetrics(ctx context.Context, ownerID, key string) ([]domain.ClickMetric, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.link_id, m.ip, m.device, m.date
		FROM link_metrics m
		JOIN links l ON l.id = m.link_id
		JOIN user_links ul ON ul.link_id = l.id
		WHERE ul.user_id = $1 AND l.key = $2
		ORDER BY m.date
	`, ownerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	defer rows.Close()

	var metrics []domain.ClickMetric
	for rows.Next() {
		var m domain.ClickMetric
		if err := rows.Scan(&m.ID, &m.LinkID, &m.IP, &m.Device, &m.Date); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

func (r *PostgresRepository) scanLink(row pgx.Row) (*domain.Link, error) {
	var l domain.Link
	err := row.Scan(&l.ID, &l.Key, &l.SecretKey, &l.TargetURL, &l.IsActive, &l.Clicks, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &l, nil
}
