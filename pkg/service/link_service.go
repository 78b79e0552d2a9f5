package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"urlshorten/pkg/cache"
	"urlshorten/pkg/logging"
	"urlshorten/pkg/metrics"
	"urlshorten/pkg/storage"
)

type LinkServiceConfig struct {
	// BaseURL is the public origin short links are served from.
	BaseURL string
	// CacheDuration is the sliding expiration of redirect cache entries.
	CacheDuration time.Duration
}

type LinkService struct {
	storage   storage.LinkStorage
	cache     cache.RedirectCache
	generator TokenGenerator
	logger    *logging.Logger
	metrics   *metrics.Metrics

	baseURL       string
	cacheDuration time.Duration
}

func NewLinkService(storage storage.LinkStorage, cache cache.RedirectCache, generator TokenGenerator, logger *logging.Logger, m *metrics.Metrics, cfg LinkServiceConfig) *LinkService {
	return &LinkService{
		storage:       storage,
		cache:         cache,
		generator:     generator,
		logger:        logger,
		metrics:       m,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		cacheDuration: cfg.CacheDuration,
	}
}

type CreateLinkResponse struct {
	Token    string `json:"token"`
	ShortURL string `json:"url"`
}

// ShortURL is the fully-qualified redirect URL for token.
func (s *LinkService) ShortURL(token string) string {
	return s.baseURL + "/" + token
}

type insertOutcome int

const (
	insertAccepted insertOutcome = iota
	insertRetry
	insertFailed
)

// reservedTokens are path segments routed before the redirect.
var reservedTokens = map[string]bool{
	"metrics": true,
}

func (s *LinkService) tryInsert(ctx context.Context, link *storage.Link) (insertOutcome, error) {
	if reservedTokens[link.Token] {
		return insertRetry, nil
	}
	err := s.storage.Insert(ctx, link)
	switch {
	case err == nil:
		return insertAccepted, nil
	case errors.Is(err, storage.ErrDuplicateToken):
		return insertRetry, nil
	case errors.Is(err, storage.ErrDuplicateLink):
		return insertFailed, ErrDuplicateLink
	default:
		return insertFailed, fmt.Errorf("failed to insert link: %w", err)
	}
}

// CreateLink shortens longURL for ownerID. Candidate tokens rejected by the
// store as duplicates are dropped and a fresh one is generated; the loop only
// ends on acceptance, a non-duplicate store error, or ctx being done.
func (s *LinkService) CreateLink(ctx context.Context, longURL, ownerID string) (*CreateLinkResponse, error) {
	exists, err := s.storage.ExistsByURLAndOwner(ctx, longURL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing link: %w", err)
	}
	if exists {
		return nil, ErrDuplicateLink
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		link := &storage.Link{
			Token:     s.generator.Generate(longURL),
			LongURL:   longURL,
			OwnerID:   ownerID,
			CreatedAt: time.Now().UTC(),
		}

		outcome, err := s.tryInsert(ctx, link)
		switch outcome {
		case insertAccepted:
			s.metrics.LinksCreated.Inc()
			s.logger.LogLinkOperation(ctx, "create", link.Token, true)
			return &CreateLinkResponse{Token: link.Token, ShortURL: s.ShortURL(link.Token)}, nil
		case insertRetry:
			s.metrics.TokenCollisions.Inc()
			s.logger.LogTokenCollision(ctx, link.Token, attempt)
		default:
			s.logger.LogLinkOperation(ctx, "create", link.Token, false)
			return nil, err
		}
	}
}

// ResolvePublic returns the URL behind token and charges one click to it.
// The cache is only ever filled from a store read made in the same call.
func (s *LinkService) ResolvePublic(ctx context.Context, token string) (string, error) {
	longURL, hit := s.lookupCache(ctx, token)
	if !hit {
		link, err := s.storage.GetByToken(ctx, token)
		if err != nil {
			return "", fmt.Errorf("failed to get link: %w", err)
		}
		if link == nil {
			return "", ErrNotFound
		}
		longURL = link.LongURL

		if err := s.cache.Set(ctx, token, []byte(longURL), s.cacheDuration); err != nil {
			s.logger.Warn(ctx, "failed to populate redirect cache", "token", token, "error", err)
		}
	}

	// Click accounting is best-effort and never fails the redirect.
	if err := s.storage.IncrementClickCount(ctx, token); err != nil {
		s.metrics.ClickIncrementFailures.Inc()
		s.logger.Warn(ctx, "failed to increment click count", "token", token, "error", err)
	}

	return longURL, nil
}

func (s *LinkService) lookupCache(ctx context.Context, token string) (string, bool) {
	cached, err := s.cache.Get(ctx, token)
	if err != nil {
		s.metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		s.logger.Warn(ctx, "redirect cache unavailable, falling back to store", "token", token, "error", err)
		return "", false
	}
	if len(cached) == 0 {
		s.metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
		return "", false
	}
	s.metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
	return string(cached), true
}

func (s *LinkService) ResolveForOwner(ctx context.Context, token, ownerID string) (*storage.Link, error) {
	link, err := s.storage.GetByTokenAndOwner(ctx, token, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

// DeleteLink removes the link from the store first and then evicts it from
// the redirect cache.
func (s *LinkService) DeleteLink(ctx context.Context, token, ownerID string) error {
	if err := s.checkOwnership(ctx, token, ownerID); err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, token); err != nil {
		s.logger.LogLinkOperation(ctx, "delete", token, false)
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if err := s.cache.Remove(ctx, token); err != nil {
		s.logger.Error(ctx, "failed to evict deleted link from redirect cache", "token", token, "error", err)
	}

	s.metrics.LinksDeleted.Inc()
	s.logger.LogLinkOperation(ctx, "delete", token, true)
	return nil
}

func (s *LinkService) GetClickCount(ctx context.Context, token, ownerID string) (int64, error) {
	if err := s.checkOwnership(ctx, token, ownerID); err != nil {
		return 0, err
	}

	count, err := s.storage.GetClickCount(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("failed to get click count: %w", err)
	}
	if count == nil {
		// deleted between the ownership check and the read
		return 0, ErrNotFound
	}
	return *count, nil
}

func (s *LinkService) checkOwnership(ctx context.Context, token, ownerID string) error {
	exists, err := s.storage.ExistsByTokenAndOwner(ctx, token, ownerID)
	if err != nil {
		return fmt.Errorf("failed to check link ownership: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
