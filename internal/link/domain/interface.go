package domain

//go:generate mockgen -destination=../../mocks/mock_link_repository.go -package=mocks github.com/Itproger-it/url-short/internal/link/domain LinkRepository
//go:generate mockgen -destination=../../mocks/mock_link_cache.go -package=mocks github.com/Itproger-it/url-short/internal/link/domain Cache

import "context"

type LinkRepository interface {
	// Create inserts the link and, when ownerID is non-empty, the ownership
	// row, in one transaction.
	Create(ctx context.Context, link *Link, ownerID string) error
	// GetByKey returns the active link for a public key, nil when absent.
	GetByKey(ctx context.Context, key string) (*Link, error)
	// GetBySecretKey returns the active link for an admin secret key owned
	// by the given user, nil when absent.
	GetBySecretKey(ctx context.Context, ownerID, secretKey string) (*Link, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Link, error)
	// Deactivate soft-deletes an owned link and returns it, nil when absent.
	Deactivate(ctx context.Context, ownerID, secretKey string) (*Link, error)
	// RecordClick increments the click counter and stores one metric row.
	RecordClick(ctx context.Context, key, ip, device string) error
	GetMetrics(ctx context.Context, ownerID, key string) ([]ClickMetric, error)
}

// Cache is the redirect-path key→target cache.
type Cache interface {
	GetTarget(ctx context.Context, key string) (string, error)
	SetTarget(ctx context.Context, key, target string) error
	Invalidate(ctx context.Context, key string) error
}
