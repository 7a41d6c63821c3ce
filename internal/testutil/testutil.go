// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/tinylink/urlshortener/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteRepository returns a migrated link repository backed by a private
// in-memory SQLite database. It is closed when the test ends.
func NewSQLiteRepository(t *testing.T) *repository.GormLinkRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to ":memory:" is a different database; keep one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewLinkRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// Clock hands out strictly increasing times, one step apart.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}
