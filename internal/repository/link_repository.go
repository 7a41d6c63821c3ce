package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"gorm.io/gorm"
)

// LinkRepository is the link record store. Implementations must enforce the
// uniqueness of codes themselves and report a violation as
// customerrors.ErrDuplicateShortCode; lookups that find nothing return
// customerrors.ErrShortCodeNotFound.
type LinkRepository interface {
	// Migrate creates the schema (tables or collections and indexes).
	Migrate(ctx context.Context) error
	CreateLink(ctx context.Context, link *models.Link) error
	CodeExists(ctx context.Context, code string) (bool, error)
	// GetLinkByCode ignores the deleted flag.
	GetLinkByCode(ctx context.Context, code string) (*models.Link, error)
	// GetActiveLinkByCode only matches links that are not deleted.
	GetActiveLinkByCode(ctx context.Context, code string) (*models.Link, error)
	// ListActiveLinks returns links that are not deleted, newest first.
	ListActiveLinks(ctx context.Context) ([]models.Link, error)
	MarkDeleted(ctx context.Context, code string) error
	// RecordClick atomically increments the click counter of an active link
	// and sets its last click time.
	RecordClick(ctx context.Context, code string, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

// GormLinkRepository is the LinkRepository implementation using GORM.
// It serves both SQLite and PostgreSQL.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates and returns a new GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// DB exposes the underlying handle, e.g. for test fixtures.
func (r *GormLinkRepository) DB() *gorm.DB { return r.db }

func (r *GormLinkRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.Link{}); err != nil {
		return fmt.Errorf("failed to migrate links table: %w", err)
	}
	return nil
}

// CreateLink inserts a new link.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", customerrors.ErrDuplicateShortCode, link.Code)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (r *GormLinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Link{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check code %s: %w", code, err)
	}
	return count > 0, nil
}

func (r *GormLinkRepository) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", code))
}

func (r *GormLinkRepository) GetActiveLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ? AND deleted = ?", code, false))
}

func (r *GormLinkRepository) first(query *gorm.DB) (*models.Link, error) {
	var link models.Link
	if err := query.First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	return &link, nil
}

// ListActiveLinks orders by creation time; the surrogate id breaks ties
// between links created within the same clock tick.
func (r *GormLinkRepository) ListActiveLinks(ctx context.Context) ([]models.Link, error) {
	links := []models.Link{}
	err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("created_at DESC").
		Order("id DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve links: %w", err)
	}
	return links, nil
}

func (r *GormLinkRepository) MarkDeleted(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Model(&models.Link{}).Where("code = ?", code).Update("deleted", true)
	if res.Error != nil {
		return fmt.Errorf("failed to delete link %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrShortCodeNotFound
	}
	return nil
}

func (r *GormLinkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormLinkRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicateKey recognises unique constraint violations. TranslateError maps
// most of them to gorm.ErrDuplicatedKey; the message checks cover drivers
// that do not translate.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
