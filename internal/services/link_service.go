// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/metrics"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/repository"
	"github.com/tinylink/urlshortener/internal/shortcode"
)

// forbiddenSchemes are rejected before URL validation so that they get their
// own error.
var forbiddenSchemes = []string{"javascript:", "data:"}

var validate = validator.New()

// Limits are the retry budgets of link creation.
type Limits struct {
	GenerateAttempts   int // resolver budget for the first code
	RegenerateAttempts int // resolver budget after an insert collision
	MaxSaveAttempts    int // total insert attempts
}

// DefaultLimits allow at most 8 existence checks and 4 inserts per request.
var DefaultLimits = Limits{GenerateAttempts: 8, RegenerateAttempts: 4, MaxSaveAttempts: 4}

// LinkService provides business logic methods for managing shortened links.
// It acts as an intermediary between the HTTP handlers and the link store.
type LinkService struct {
	linkRepo repository.LinkRepository
	resolver *shortcode.Resolver
	limits   Limits
	baseURL  string
	now      func() time.Time
	logger   *zap.Logger
}

// LinkOption configures a LinkService.
type LinkOption func(*LinkService)

func WithBaseURL(baseURL string) LinkOption {
	return func(s *LinkService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithLimits(limits Limits) LinkOption {
	return func(s *LinkService) { s.limits = limits }
}

func WithClock(now func() time.Time) LinkOption {
	return func(s *LinkService) { s.now = now }
}

func WithLogger(logger *zap.Logger) LinkOption {
	return func(s *LinkService) { s.logger = logger }
}

// WithResolver replaces the code resolver (tests use a scripted generator).
func WithResolver(resolver *shortcode.Resolver) LinkOption {
	return func(s *LinkService) { s.resolver = resolver }
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(linkRepo repository.LinkRepository, opts ...LinkOption) *LinkService {
	s := &LinkService{
		linkRepo: linkRepo,
		limits:   DefaultLimits,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = shortcode.NewResolver(linkRepo)
	}
	s.resolver.OnCollision = func(code string) {
		metrics.CodeCollisions.WithLabelValues(metrics.StageCheck).Inc()
		s.logger.Debug("short code already exists, retrying generation", zap.String("code", code))
	}
	return s
}

// NormalizeTarget trims the target URL and checks that it is an absolute
// http(s) URL.
func NormalizeTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", customerrors.ErrMissingTarget
	}

	lower := strings.ToLower(target)
	for _, scheme := range forbiddenSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", customerrors.ErrForbiddenScheme
		}
	}

	if err := validate.Var(target, "url"); err != nil {
		return "", customerrors.ErrInvalidTarget
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", customerrors.ErrInvalidTarget
	}
	return target, nil
}

// CreateLink creates a new shortened link.
// With a customCode the code is taken as is, or the call fails with
// ErrCodeConflict. Without one a code is generated; if the store rejects the
// insert because another request claimed the same code in the meantime, a
// fresh code is generated and the insert retried.
func (s *LinkService) CreateLink(ctx context.Context, target, customCode string) (*models.Link, error) {
	target, err := NormalizeTarget(target)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(customCode)
	custom := code != ""
	source := metrics.SourceGenerated

	if custom {
		source = metrics.SourceCustom
		if !shortcode.Valid(code) {
			return nil, customerrors.ErrInvalidCustomCode
		}
		exists, err := s.linkRepo.CodeExists(ctx, code)
		if err != nil {
			return nil, customerrors.NewStoreError("check custom code", err)
		}
		if exists {
			return nil, customerrors.ErrCodeConflict
		}
	} else {
		code, err = s.uniqueCode(ctx, s.limits.GenerateAttempts)
		if err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		link := &models.Link{
			Code:      code,
			Target:    target,
			CreatedAt: s.now(),
		}

		err := s.linkRepo.CreateLink(ctx, link)
		if err == nil {
			metrics.LinksCreated.WithLabelValues(source).Inc()
			s.logger.Info("link created", zap.String("code", link.Code), zap.String("source", source))
			return link, nil
		}
		if !errors.Is(err, customerrors.ErrDuplicateShortCode) {
			return nil, customerrors.NewStoreError("create link", err)
		}

		// Lost a race: the store already holds this code.
		metrics.CodeCollisions.WithLabelValues(metrics.StageInsert).Inc()
		if custom {
			return nil, customerrors.ErrCodeConflict
		}
		if attempt >= s.limits.MaxSaveAttempts {
			s.logger.Warn("giving up on link creation after repeated collisions", zap.Int("attempts", attempt))
			return nil, fmt.Errorf("%w: %d insert attempts collided", customerrors.ErrShortCodeGenerationFailed, attempt)
		}
		s.logger.Info("short code collided on insert, regenerating",
			zap.String("code", code), zap.Int("attempt", attempt))

		code, err = s.uniqueCode(ctx, s.limits.RegenerateAttempts)
		if err != nil {
			return nil, err
		}
	}
}

func (s *LinkService) uniqueCode(ctx context.Context, attempts int) (string, error) {
	code, err := s.resolver.Unique(ctx, attempts)
	if err == nil {
		return code, nil
	}
	if errors.Is(err, shortcode.ErrExhaustedAttempts) {
		return "", fmt.Errorf("%w: %v", customerrors.ErrShortCodeGenerationFailed, err)
	}
	return "", customerrors.NewStoreError("generate code", err)
}

// ListLinks returns every link that is not deleted, newest first.
func (s *LinkService) ListLinks(ctx context.Context) ([]models.Link, error) {
	links, err := s.linkRepo.ListActiveLinks(ctx)
	if err != nil {
		return nil, customerrors.NewStoreError("list links", err)
	}
	return links, nil
}

// GetStats returns a link by code, deleted or not.
func (s *LinkService) GetStats(ctx context.Context, code string) (*models.Link, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, customerrors.ErrMissingCode
	}
	link, err := s.linkRepo.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			return nil, err
		}
		return nil, customerrors.NewStoreError("get stats", err)
	}
	return link, nil
}

// DeleteLink soft-deletes a link. Deleting twice is not an error.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return customerrors.ErrMissingCode
	}
	if err := s.linkRepo.MarkDeleted(ctx, code); err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			return err
		}
		return customerrors.NewStoreError("delete link", err)
	}
	s.logger.Info("link deleted", zap.String("code", code))
	return nil
}

// ShortLink returns the path-only and absolute short links of code. The
// configured base URL wins; requestBase (scheme://host of the inbound
// request) is used otherwise.
func (s *LinkService) ShortLink(code, requestBase string) (shortPath, shortURL string) {
	shortPath = "/" + code
	base := s.baseURL
	if base == "" {
		base = strings.TrimRight(requestBase, "/")
	}
	return shortPath, base + shortPath
}
