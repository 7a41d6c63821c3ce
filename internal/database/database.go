// Package database opens the link store named by the configured URL.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tinylink/urlshortener/internal/config"
	"github.com/tinylink/urlshortener/internal/repository"
)

// DefaultMongoDatabase is used when a MongoDB URL names no database.
const DefaultMongoDatabase = "tinylink"

// Driver identifies the store backend.
type Driver string

const (
	DriverMongo    Driver = "mongodb"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ErrUnsupportedURL is returned for store URLs no driver recognises.
var ErrUnsupportedURL = errors.New("unsupported database URL")

// DriverFor picks the backend from the URL scheme.
func DriverFor(rawURL string) (Driver, error) {
	u := strings.TrimSpace(rawURL)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return "", fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return DriverMongo, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(lower, "sqlite:"), strings.HasPrefix(lower, "file:"),
		u == ":memory:", strings.HasSuffix(lower, ".db"):
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, Redact(u))
}

// Connect opens the store at rawURL and pings it within timeout.
func Connect(ctx context.Context, rawURL string, timeout time.Duration) (repository.LinkRepository, error) {
	driver, err := DriverFor(rawURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var repo repository.LinkRepository
	switch driver {
	case DriverMongo:
		repo, err = connectMongo(ctx, rawURL, timeout)
	case DriverPostgres:
		repo, err = openGorm(postgres.Open(rawURL))
	case DriverSQLite:
		repo, err = openSQLite(rawURL)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := repo.Ping(pingCtx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", driver, err)
	}
	return repo, nil
}

// Open connects to cfg.URL. When that fails and the local fallback is
// allowed, cfg.LocalURL is tried; if the fallback fails as well the primary
// error is returned.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.LinkRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, err := Connect(ctx, cfg.URL, cfg.ConnectTimeout)
	if err == nil {
		logger.Info("connected to link store", zap.String("url", Redact(cfg.URL)))
		return repo, nil
	}
	if !cfg.AllowLocalFallback || strings.TrimSpace(cfg.LocalURL) == "" || cfg.LocalURL == cfg.URL {
		return nil, err
	}

	logger.Warn("primary link store unreachable, trying local fallback",
		zap.String("url", Redact(cfg.URL)), zap.Error(err))
	local, localErr := Connect(ctx, cfg.LocalURL, cfg.ConnectTimeout)
	if localErr != nil {
		logger.Error("local link store unreachable", zap.String("url", Redact(cfg.LocalURL)), zap.Error(localErr))
		return nil, err
	}
	logger.Info("connected to local link store", zap.String("url", Redact(cfg.LocalURL)))
	return local, nil
}

// WithCache wraps repo with the Redis redirect cache when cfg.RedisURL is set.
// It returns repo unchanged otherwise.
func WithCache(ctx context.Context, repo repository.LinkRepository, cfg config.CacheConfig, logger *zap.Logger) (repository.LinkRepository, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return repo, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger != nil {
		logger.Info("redirect cache enabled", zap.String("redis", opt.Addr), zap.Duration("ttl", cfg.TTL))
	}
	return repository.NewCachedLinkRepository(repo, rdb, cfg.TTL, logger), nil
}

func connectMongo(ctx context.Context, uri string, timeout time.Duration) (repository.LinkRepository, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URL: %w", err)
	}
	name := cs.Database
	if name == "" {
		name = DefaultMongoDatabase
	}

	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return repository.NewMongoLinkRepository(client, name), nil
}

func openSQLite(rawURL string) (repository.LinkRepository, error) {
	dsn := strings.TrimSpace(rawURL)
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite:") {
		dsn = strings.TrimPrefix(dsn[len("sqlite:"):], "//")
	}
	repo, err := openGorm(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		// Each connection to ":memory:" is its own database.
		sqlDB, err := repo.DB().DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return repo, nil
}

func openGorm(dialector gorm.Dialector) (*repository.GormLinkRepository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repository.NewLinkRepository(db), nil
}

// Redact hides the password of a store URL for logging.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}
