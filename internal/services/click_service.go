package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/metrics"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/repository"
)

// ClickService resolves short codes for redirects and records the visit.
type ClickService struct {
	linkRepo repository.LinkRepository
	now      func() time.Time
	logger   *zap.Logger
}

func NewClickService(linkRepo repository.LinkRepository, logger *zap.Logger) *ClickService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickService{linkRepo: linkRepo, now: time.Now, logger: logger}
}

// WithClock sets the time used for events that carry no timestamp.
func (s *ClickService) WithClock(now func() time.Time) *ClickService {
	s.now = now
	return s
}

// ResolveAndRecord returns the target of an active link and bumps its click
// counter. The counter is telemetry: when the update fails the failure is
// logged and the target is still returned.
func (s *ClickService) ResolveAndRecord(ctx context.Context, event models.ClickEvent) (string, error) {
	code := strings.TrimSpace(event.Code)
	if code == "" {
		return "", customerrors.ErrMissingCode
	}

	link, err := s.linkRepo.GetActiveLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
			return "", err
		}
		metrics.Redirects.WithLabelValues(metrics.ResultError).Inc()
		return "", customerrors.NewStoreError("resolve link", err)
	}

	at := event.Timestamp
	if at.IsZero() {
		at = s.now()
	}
	if err := s.linkRepo.RecordClick(ctx, code, at); err != nil {
		metrics.ClickRecordFailures.Inc()
		s.logger.Warn("failed to update click count",
			zap.Error(customerrors.ErrClickRecordingFailed{Code: code, Reason: err.Error()}),
			zap.String("user_agent", event.UserAgent),
			zap.String("ip", event.IPAddress),
		)
	}

	metrics.Redirects.WithLabelValues(metrics.ResultFound).Inc()
	return link.Target, nil
}
