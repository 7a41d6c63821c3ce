package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/repository"
	"github.com/tinylink/urlshortener/internal/services"
	"github.com/tinylink/urlshortener/internal/shortcode"
	"github.com/tinylink/urlshortener/internal/testutil"
)

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// racingRepo simulates concurrent requests: before each of the first
// `collide` inserts, another writer stores a link with the same code.
type racingRepo struct {
	repository.LinkRepository
	collide int
	inserts int
	codes   []string
}

func (r *racingRepo) CreateLink(ctx context.Context, link *models.Link) error {
	r.inserts++
	r.codes = append(r.codes, link.Code)
	if r.collide > 0 {
		r.collide--
		rival := &models.Link{Code: link.Code, Target: "https://rival.example.com", CreatedAt: link.CreatedAt}
		if err := r.LinkRepository.CreateLink(ctx, rival); err != nil {
			return err
		}
	}
	return r.LinkRepository.CreateLink(ctx, link)
}

// failingRepo injects store failures.
type failingRepo struct {
	repository.LinkRepository
	createErr error
	existsErr error
	listErr   error
}

func (r *failingRepo) CreateLink(ctx context.Context, link *models.Link) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.LinkRepository.CreateLink(ctx, link)
}

func (r *failingRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	return r.LinkRepository.CodeExists(ctx, code)
}

func (r *failingRepo) ListActiveLinks(ctx context.Context) ([]models.Link, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.LinkRepository.ListActiveLinks(ctx)
}

func newService(t *testing.T, repo repository.LinkRepository, opts ...services.LinkOption) *services.LinkService {
	t.Helper()
	clock := testutil.NewClock(start, time.Second)
	return services.NewLinkService(repo, append([]services.LinkOption{services.WithClock(clock.Now)}, opts...)...)
}

func TestCreateLinkValidation(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		target string
		code   string
		want   error
	}{
		{"missing target", "   ", "", customerrors.ErrMissingTarget},
		{"not a url", "not-a-url", "", customerrors.ErrInvalidTarget},
		{"javascript scheme", "javascript:alert(1)", "", customerrors.ErrForbiddenScheme},
		{"data scheme any case", "  DATA:text/html,<script>alert(1)</script>", "", customerrors.ErrForbiddenScheme},
		{"ftp scheme", "ftp://files.example.com/a.txt", "", customerrors.ErrInvalidTarget},
		{"no host", "https://", "", customerrors.ErrInvalidTarget},
		{"relative", "/just/a/path", "", customerrors.ErrInvalidTarget},
		{"code too short", "https://example.com", "abc", customerrors.ErrInvalidCustomCode},
		{"code too long", "https://example.com", "Abc123456", customerrors.ErrInvalidCustomCode},
		{"code not alphanumeric", "https://example.com", "Abc_12", customerrors.ErrInvalidCustomCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := svc.CreateLink(ctx, tt.target, tt.code)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, link)
			assert.Equal(t, customerrors.KindInvalidInput, customerrors.KindOf(err))
		})
	}
}

func TestCreateLinkCustomCode(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "  https://example.com/docs  ", " Abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "Abc123", link.Code)
	assert.Equal(t, "https://example.com/docs", link.Target)
	assert.Equal(t, start, link.CreatedAt)
	assert.Zero(t, link.TotalClicks)
	assert.Nil(t, link.LastClickedAt)

	_, err = svc.CreateLink(ctx, "https://example.org", "Abc123")
	require.ErrorIs(t, err, customerrors.ErrCodeConflict)
	assert.Equal(t, customerrors.KindConflict, customerrors.KindOf(err))
}

func TestCreateLinkGeneratedRoundTrip(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))
	ctx := context.Background()

	created, err := svc.CreateLink(ctx, "https://example.com/a?b=c", "")
	require.NoError(t, err)
	assert.True(t, shortcode.Valid(created.Code))

	stats, err := svc.GetStats(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, created.Code, stats.Code)
	assert.Equal(t, created.Target, stats.Target)
	assert.False(t, stats.Deleted)
}

func TestCreateLinkRecoversFromInsertRace(t *testing.T) {
	repo := &racingRepo{LinkRepository: testutil.NewSQLiteRepository(t), collide: 2}
	svc := newService(t, repo)

	link, err := svc.CreateLink(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.inserts)
	assert.Equal(t, repo.codes[2], link.Code)
	assert.NotEqual(t, repo.codes[0], link.Code)

	stored, err := svc.GetStats(context.Background(), link.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", stored.Target)
}

func TestCreateLinkGivesUpAfterMaxSaveAttempts(t *testing.T) {
	repo := &racingRepo{LinkRepository: testutil.NewSQLiteRepository(t), collide: 10}
	svc := newService(t, repo)

	_, err := svc.CreateLink(context.Background(), "https://example.com", "")
	require.ErrorIs(t, err, customerrors.ErrShortCodeGenerationFailed)
	assert.Equal(t, customerrors.KindExhausted, customerrors.KindOf(err))
	assert.Equal(t, services.DefaultLimits.MaxSaveAttempts, repo.inserts)
}

func TestCreateLinkCustomCodeRaceIsConflict(t *testing.T) {
	repo := &racingRepo{LinkRepository: testutil.NewSQLiteRepository(t), collide: 1}
	svc := newService(t, repo)

	_, err := svc.CreateLink(context.Background(), "https://example.com", "Mine01")
	require.ErrorIs(t, err, customerrors.ErrCodeConflict)
	assert.Equal(t, 1, repo.inserts)
}

func TestCreateLinkGenerationExhausted(t *testing.T) {
	base := testutil.NewSQLiteRepository(t)
	ctx := context.Background()
	require.NoError(t, base.CreateLink(ctx, &models.Link{Code: "Taken1", Target: "https://example.com", CreatedAt: start}))

	resolver := shortcode.NewResolver(base).WithGenerator(func(int) string { return "Taken1" })
	svc := newService(t, base, services.WithResolver(resolver))

	_, err := svc.CreateLink(ctx, "https://example.com", "")
	require.ErrorIs(t, err, customerrors.ErrShortCodeGenerationFailed)
	assert.Equal(t, customerrors.KindExhausted, customerrors.KindOf(err))
}

func TestCreateLinkStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	svc := newService(t, &failingRepo{LinkRepository: testutil.NewSQLiteRepository(t), createErr: boom})
	_, err := svc.CreateLink(ctx, "https://example.com", "")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, customerrors.KindStore, customerrors.KindOf(err))

	svc = newService(t, &failingRepo{LinkRepository: testutil.NewSQLiteRepository(t), existsErr: boom})
	_, err = svc.CreateLink(ctx, "https://example.com", "Abc123")
	assert.Equal(t, customerrors.KindStore, customerrors.KindOf(err))
	_, err = svc.CreateLink(ctx, "https://example.com", "")
	assert.Equal(t, customerrors.KindStore, customerrors.KindOf(err))

	svc = newService(t, &failingRepo{LinkRepository: testutil.NewSQLiteRepository(t), listErr: boom})
	_, err = svc.ListLinks(ctx)
	assert.Equal(t, customerrors.KindStore, customerrors.KindOf(err))
}

func TestListLinksNewestFirst(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))
	ctx := context.Background()

	for _, code := range []string{"Link01", "Link02", "Link03"} {
		_, err := svc.CreateLink(ctx, "https://example.com/"+code, code)
		require.NoError(t, err)
	}

	links, err := svc.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "Link03", links[0].Code)
	assert.Equal(t, "Link02", links[1].Code)
	assert.Equal(t, "Link01", links[2].Code)
}

func TestDeleteLink(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, "https://example.com/keep", "Keep01")
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, "https://example.com/drop", "Drop01")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLink(ctx, "Drop01"))
	require.NoError(t, svc.DeleteLink(ctx, "Drop01"))

	links, err := svc.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Keep01", links[0].Code)

	stats, err := svc.GetStats(ctx, "Drop01")
	require.NoError(t, err)
	assert.True(t, stats.Deleted)
	assert.Equal(t, models.LinkDeleted, stats.State())

	err = svc.DeleteLink(ctx, "Nope01")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
	assert.ErrorIs(t, svc.DeleteLink(ctx, " "), customerrors.ErrMissingCode)
}

func TestGetStatsErrors(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteRepository(t))

	_, err := svc.GetStats(context.Background(), "Nope01")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
	assert.Equal(t, customerrors.KindNotFound, customerrors.KindOf(err))

	_, err = svc.GetStats(context.Background(), "")
	assert.ErrorIs(t, err, customerrors.ErrMissingCode)
}

func TestShortLink(t *testing.T) {
	repo := testutil.NewSQLiteRepository(t)

	path, url := newService(t, repo).ShortLink("Abc123", "http://localhost:4000")
	assert.Equal(t, "/Abc123", path)
	assert.Equal(t, "http://localhost:4000/Abc123", url)

	path, url = newService(t, repo, services.WithBaseURL("https://sho.rt/")).ShortLink("Abc123", "http://localhost:4000")
	assert.Equal(t, "/Abc123", path)
	assert.Equal(t, "https://sho.rt/Abc123", url)
}
