package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"github.com/tinylink/urlshortener/internal/services"
)

// Options are the router settings that do not come from the services.
type Options struct {
	Version        string
	MetricsEnabled bool
	Logger         *zap.Logger
}

// SetupRoutes configures all Gin routes and injects the services.
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, clickService *services.ClickService, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router.Use(RequestID(), CORS(), Metrics(), AccessLog(logger))

	router.GET("/healthz", HealthCheckHandler(opts.Version))
	if opts.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/links")
	{
		api.POST("", CreateLinkHandler(linkService, logger))
		api.GET("", ListLinksHandler(linkService, logger))
		api.GET("/:code", GetLinkStatsHandler(linkService, logger))
		api.DELETE("/:code", DeleteLinkHandler(linkService, logger))
	}

	// Short links live at the root, e.g. localhost:4000/Abc123
	router.GET("/:code", RedirectHandler(clickService, logger))
}

// HealthCheckHandler reports liveness only; it does not touch the store.
func HealthCheckHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "version": version})
	}
}

// CreateLinkRequest is the JSON body of POST /api/links.
type CreateLinkRequest struct {
	Target string `json:"target"`
	Code   string `json:"code"`
}

// LinkResponse is the JSON form of a link.
type LinkResponse struct {
	Code          string     `json:"code"`
	Target        string     `json:"target"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastClickedAt *time.Time `json:"lastClickedAt"`
	TotalClicks   int64      `json:"totalClicks"`
	Deleted       bool       `json:"deleted"`
	ShortPath     string     `json:"shortPath"`
	ShortURL      string     `json:"shortUrl"`
}

func newLinkResponse(c *gin.Context, linkService *services.LinkService, link *models.Link) LinkResponse {
	shortPath, shortURL := linkService.ShortLink(link.Code, requestBase(c))
	return LinkResponse{
		Code:          link.Code,
		Target:        link.Target,
		CreatedAt:     link.CreatedAt,
		LastClickedAt: link.LastClickedAt,
		TotalClicks:   link.TotalClicks,
		Deleted:       link.Deleted,
		ShortPath:     shortPath,
		ShortURL:      shortURL,
	}
}

// CreateLinkHandler handles POST /api/links and answers 201 with a Location header.
func CreateLinkHandler(linkService *services.LinkService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		link, err := linkService.CreateLink(c.Request.Context(), req.Target, req.Code)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := newLinkResponse(c, linkService, link)
		c.Header("Location", resp.ShortPath)
		c.JSON(http.StatusCreated, resp)
	}
}

// ListLinksHandler handles GET /api/links.
func ListLinksHandler(linkService *services.LinkService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := linkService.ListLinks(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := make([]LinkResponse, 0, len(links))
		for i := range links {
			resp = append(resp, newLinkResponse(c, linkService, &links[i]))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetLinkStatsHandler handles GET /api/links/:code. Deleted links are
// reported too, with deleted=true.
func GetLinkStatsHandler(linkService *services.LinkService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := linkService.GetStats(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, newLinkResponse(c, linkService, link))
	}
}

// DeleteLinkHandler handles DELETE /api/links/:code.
func DeleteLinkHandler(linkService *services.LinkService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := linkService.DeleteLink(c.Request.Context(), c.Param("code")); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// RedirectHandler sends the visitor to the target of an active link and
// counts the click.
func RedirectHandler(clickService *services.ClickService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := clickService.ResolveAndRecord(c.Request.Context(), models.ClickEvent{
			Code:      c.Param("code"),
			Timestamp: time.Now(),
			UserAgent: c.GetHeader("User-Agent"),
			IPAddress: c.ClientIP(),
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind customerrors.Kind) int {
	switch kind {
	case customerrors.KindInvalidInput:
		return http.StatusBadRequest
	case customerrors.KindConflict:
		return http.StatusConflict
	case customerrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Server-side failures are logged and
// answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := customerrors.KindOf(err)
	status := StatusFor(kind)
	_ = c.Error(err)

	msg := err.Error()
	switch kind {
	case customerrors.KindExhausted:
		msg = customerrors.ErrShortCodeGenerationFailed.Error()
	case customerrors.KindStore, customerrors.KindUnknown:
		msg = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind.String()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

// requestBase is scheme://host of the inbound request, honouring a proxy's
// X-Forwarded-Proto.
func requestBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}
