package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	linkerror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/internal/link/domain"
	"github.com/Itproger-it/url-short/pkg/constant"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

const keyRetryLimit = 5

type LinkService struct {
	links        domain.LinkRepository
	cache        domain.Cache
	newKey       func() string
	newSecretTag func() string
	httpClient   *http.Client
}

func NewLinkService(links domain.LinkRepository, cache domain.Cache) (*LinkService, error) {
	newKey, err := nanoid.CustomASCII(constant.ShortKeyAlphabet, constant.ShortKeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build key generator: %w", err)
	}
	newSecretTag, err := nanoid.CustomASCII(constant.ShortKeyAlphabet, constant.SecretKeySuffixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build secret generator: %w", err)
	}

	return &LinkService{
		links:        links,
		cache:        cache,
		newKey:       newKey,
		newSecretTag: newSecretTag,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Create shortens a URL. A non-empty customKey is used as-is after an
// occupancy check; otherwise a random key is generated. ownerID may be empty
// for anonymous links.
func (s *LinkService) Create(ctx context.Context, ownerID, targetURL, customKey string) (*domain.Link, error) {
	key := customKey
	if key != "" {
		existing, err := s.links.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, linkerror.ErrKeyOccupied
		}
	} else {
		var err error
		key, err = s.uniqueKey(ctx)
		if err != nil {
			return nil, err
		}
	}

	link := &domain.Link{
		ID:        uuid.NewString(),
		Key:       key,
		SecretKey: fmt.Sprintf("%s_%s", key, s.newSecretTag()),
		TargetURL: targetURL,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := s.links.Create(ctx, link, ownerID); err != nil {
		return nil, err
	}

	return link, nil
}

// Resolve looks up the redirect target for a key and records the click. A
// failed click write never blocks the redirect.
func (s *LinkService) Resolve(ctx context.Context, key, ip, device string) (string, error) {
	target, err := s.cache.GetTarget(ctx, key)
	if err != nil {
		log.Printf("warn: link cache lookup failed for %s: %v", key, err)
	}

	if target == "" {
		link, err := s.links.GetByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if link == nil {
			return "", linkerror.ErrLinkNotFound
		}
		target = link.TargetURL

		if err := s.cache.SetTarget(ctx, key, target); err != nil {
			log.Printf("warn: link cache store failed for %s: %v", key, err)
		}
	}

	if err := s.links.RecordClick(ctx, key, ip, device); err != nil {
		log.Printf("warn: failed to record click for %s: %v", key, err)
	}

	return target, nil
}

// Expand follows the redirect chain of a shortened URL and returns the final
// location. Unreachable targets resolve to the input itself.
func (s *LinkService) Expand(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", linkerror.ErrInvalidURL
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return rawURL, nil
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}

func (s *LinkService) Info(ctx context.Context, ownerID, secretKey string) (*domain.Link, error) {
	link, err := s.links.GetBySecretKey(ctx, ownerID, secretKey)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, linkerror.ErrLinkNotFound
	}
	return link, nil
}

func (s *LinkService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	return s.links.ListByOwner(ctx, ownerID)
}

func (s *LinkService) Metrics(ctx context.Context, ownerID, key string) ([]domain.ClickMetric, error) {
	link, err := s.links.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, linkerror.ErrLinkNotFound
	}
	return s.links.GetMetrics(ctx, ownerID, key)
}

// Deactivate soft-deletes an owned link and drops it from the redirect cache.
func (s *LinkService) Deactivate(ctx context.Context, ownerID, secretKey string) (*domain.Link, error) {
	link, err := s.links.Deactivate(ctx, ownerID, secretKey)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, linkerror.ErrLinkNotFound
	}

	if err := s.cache.Invalidate(ctx, link.Key); err != nil {
		log.Printf("warn: failed to invalidate cache for %s: %v", link.Key, err)
	}

	return link, nil
}

func (s *LinkService) uniqueKey(ctx context.Context) (string, error) {
	for i := 0; i < keyRetryLimit; i++ {
		key := s.newKey()
		existing, err := s.links.GetByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return key, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique key after %d attempts", keyRetryLimit)
}
