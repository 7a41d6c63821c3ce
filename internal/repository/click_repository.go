package repository

import (
	"context"
	"fmt"
	"time"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"gorm.io/gorm"
)

// RecordClick increments total_clicks in SQL so concurrent redirects never
// lose an increment.
func (r *GormLinkRepository) RecordClick(ctx context.Context, code string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("code = ? AND deleted = ?", code, false).
		UpdateColumns(map[string]any{
			"total_clicks":    gorm.Expr("total_clicks + ?", 1),
			"last_clicked_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to record click for %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrShortCodeNotFound
	}
	return nil
}
