package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/testutil"
)

func byCode(results []CheckResult) map[string]CheckResult {
	m := make(map[string]CheckResult, len(results))
	for _, r := range results {
		m[r.Code] = r
	}
	return m
}

func TestCheckAll(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer flaky.Close()

	gone := httptest.NewServer(http.NotFoundHandler())
	defer gone.Close()

	repo := testutil.NewSQLiteRepository(t)
	ctx := context.Background()
	now := time.Now()
	for code, target := range map[string]string{
		"Flaky1": flaky.URL + "/page",
		"Gone01": gone.URL,
		"Dead01": "http://127.0.0.1:1/unreachable",
		"Drop01": flaky.URL,
	} {
		require.NoError(t, repo.CreateLink(ctx, &models.Link{Code: code, Target: target, CreatedAt: now}))
	}
	require.NoError(t, repo.MarkDeleted(ctx, "Drop01"))

	checker := NewLinkChecker(repo, nil).WithTimeout(time.Second)

	results, err := checker.CheckAll(ctx)
	require.NoError(t, err)
	got := byCode(results)
	require.Len(t, got, 3)

	assert.True(t, got["Flaky1"].Accessible)
	assert.Equal(t, http.StatusOK, got["Flaky1"].StatusCode)
	assert.False(t, got["Flaky1"].Changed)

	assert.False(t, got["Gone01"].Accessible)
	assert.Equal(t, http.StatusNotFound, got["Gone01"].StatusCode)

	assert.False(t, got["Dead01"].Accessible)
	var checkErr customerrors.ErrURLCheckFailed
	require.ErrorAs(t, got["Dead01"].Err, &checkErr)
	assert.Equal(t, "http://127.0.0.1:1/unreachable", checkErr.URL)

	healthy.Store(false)
	results, err = checker.CheckAll(ctx)
	require.NoError(t, err)
	got = byCode(results)
	assert.False(t, got["Flaky1"].Accessible)
	assert.True(t, got["Flaky1"].Changed)
	assert.False(t, got["Gone01"].Changed)
}

func TestWatchStopsOnCancel(t *testing.T) {
	repo := testutil.NewSQLiteRepository(t)
	checker := NewLinkChecker(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- checker.Watch(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	assert.Error(t, checker.Watch(context.Background(), 0))
}
