package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/testutil"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newLink(code string, createdAt time.Time) *models.Link {
	return &models.Link{Code: code, Target: "https://example.com/" + code, CreatedAt: createdAt}
}

func TestGormLinkRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("Abc123", base)))

		link, err := repo.GetLinkByCode(ctx, "Abc123")
		require.NoError(t, err)
		assert.Equal(t, "Abc123", link.Code)
		assert.Equal(t, "https://example.com/Abc123", link.Target)
		assert.True(t, base.Equal(link.CreatedAt))
		assert.Nil(t, link.LastClickedAt)
		assert.Zero(t, link.TotalClicks)
		assert.Equal(t, models.LinkActive, link.State())
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("Abc123", base)))

		err := repo.CreateLink(ctx, newLink("Abc123", base.Add(time.Second)))
		require.ErrorIs(t, err, customerrors.ErrDuplicateShortCode)
	})

	t.Run("CodeExists", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("Abc123", base)))

		exists, err := repo.CodeExists(ctx, "Abc123")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.CodeExists(ctx, "Zzz999")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)

		_, err := repo.GetLinkByCode(ctx, "nope00")
		assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
		_, err = repo.GetActiveLinkByCode(ctx, "nope00")
		assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
		assert.ErrorIs(t, repo.MarkDeleted(ctx, "nope00"), customerrors.ErrShortCodeNotFound)
		assert.ErrorIs(t, repo.RecordClick(ctx, "nope00", base), customerrors.ErrShortCodeNotFound)
	})

	t.Run("SoftDelete", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("Abc123", base)))

		require.NoError(t, repo.MarkDeleted(ctx, "Abc123"))
		require.NoError(t, repo.MarkDeleted(ctx, "Abc123"))

		_, err := repo.GetActiveLinkByCode(ctx, "Abc123")
		assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)

		link, err := repo.GetLinkByCode(ctx, "Abc123")
		require.NoError(t, err)
		assert.True(t, link.Deleted)
		assert.Equal(t, models.LinkDeleted, link.State())

		assert.ErrorIs(t, repo.RecordClick(ctx, "Abc123", base), customerrors.ErrShortCodeNotFound)
	})

	t.Run("ListActiveLinksNewestFirst", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("First1", base)))
		require.NoError(t, repo.CreateLink(ctx, newLink("Third3", base.Add(2*time.Minute))))
		require.NoError(t, repo.CreateLink(ctx, newLink("Secnd2", base.Add(time.Minute))))
		require.NoError(t, repo.CreateLink(ctx, newLink("Gone00", base.Add(3*time.Minute))))
		require.NoError(t, repo.MarkDeleted(ctx, "Gone00"))

		links, err := repo.ListActiveLinks(ctx)
		require.NoError(t, err)
		codes := make([]string, 0, len(links))
		for _, l := range links {
			codes = append(codes, l.Code)
		}
		assert.Equal(t, []string{"Third3", "Secnd2", "First1"}, codes)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		links, err := repo.ListActiveLinks(ctx)
		require.NoError(t, err)
		assert.NotNil(t, links)
		assert.Empty(t, links)
	})

	t.Run("RecordClick", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		require.NoError(t, repo.CreateLink(ctx, newLink("Abc123", base)))

		first := base.Add(time.Hour)
		second := base.Add(2 * time.Hour)
		require.NoError(t, repo.RecordClick(ctx, "Abc123", first))
		require.NoError(t, repo.RecordClick(ctx, "Abc123", second))

		link, err := repo.GetLinkByCode(ctx, "Abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(2), link.TotalClicks)
		require.NotNil(t, link.LastClickedAt)
		assert.True(t, second.Equal(*link.LastClickedAt))
	})

	t.Run("Ping", func(t *testing.T) {
		repo := testutil.NewSQLiteRepository(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}
