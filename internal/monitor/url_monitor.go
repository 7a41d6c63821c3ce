// Package monitor checks whether link targets are still reachable.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/repository"
)

// DefaultRequestTimeout bounds each HEAD request.
const DefaultRequestTimeout = 5 * time.Second

// CheckResult is the outcome of one target check.
type CheckResult struct {
	Code       string
	Target     string
	Accessible bool
	StatusCode int
	// Changed is set when the state differs from the previous run.
	Changed bool
	Err     error
}

// LinkChecker issues HEAD requests against the targets of active links and
// remembers the last known state of each one.
type LinkChecker struct {
	linkRepo    repository.LinkRepository
	httpClient  *http.Client
	timeout     time.Duration
	logger      *zap.Logger
	knownStates map[string]bool // code -> accessible
	mu          sync.Mutex
}

func NewLinkChecker(linkRepo repository.LinkRepository, logger *zap.Logger) *LinkChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkChecker{
		linkRepo:    linkRepo,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		timeout:     DefaultRequestTimeout,
		logger:      logger,
		knownStates: make(map[string]bool),
	}
}

// WithHTTPClient replaces the client used for checks.
func (m *LinkChecker) WithHTTPClient(client *http.Client) *LinkChecker {
	m.httpClient = client
	return m
}

func (m *LinkChecker) WithTimeout(timeout time.Duration) *LinkChecker {
	m.timeout = timeout
	return m
}

// Watch runs CheckAll immediately and then every interval until ctx is done.
func (m *LinkChecker) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", interval)
	}
	m.logger.Info("starting link checker", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.CheckAll(ctx); err != nil {
			m.logger.Error("link check run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// CheckAll checks every active link once. A failing target is a result, not
// an error; only a failure to list the links is returned.
func (m *LinkChecker) CheckAll(ctx context.Context) ([]CheckResult, error) {
	links, err := m.linkRepo.ListActiveLinks(ctx)
	if err != nil {
		return nil, customerrors.NewStoreError("list links for check", err)
	}

	results := make([]CheckResult, 0, len(links))
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		res := m.check(ctx, link.Target)
		res.Code = link.Code

		m.mu.Lock()
		previous, seen := m.knownStates[link.Code]
		m.knownStates[link.Code] = res.Accessible
		m.mu.Unlock()

		switch {
		case !seen:
			m.logger.Info("initial link state",
				zap.String("code", link.Code), zap.String("target", link.Target), zap.String("state", formatState(res.Accessible)))
		case previous != res.Accessible:
			res.Changed = true
			m.logger.Warn("link state changed",
				zap.String("code", link.Code), zap.String("target", link.Target),
				zap.String("from", formatState(previous)), zap.String("to", formatState(res.Accessible)))
		}
		results = append(results, res)
	}
	return results, nil
}

// check treats 2xx and 3xx responses as accessible.
func (m *LinkChecker) check(ctx context.Context, target string) CheckResult {
	res := CheckResult{Target: target}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		res.Err = customerrors.ErrURLCheckFailed{URL: target, Reason: err.Error()}
		return res
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		res.Err = customerrors.ErrURLCheckFailed{URL: target, Reason: err.Error()}
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Accessible = resp.StatusCode >= 200 && resp.StatusCode < 400
	return res
}

func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
