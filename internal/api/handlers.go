package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
	// maxPage keeps (page-1)*limit inside int64.
	maxPage = math.MaxInt64 / maxLimit

	tickerSize    = 10
	tickerMinimum = 5
)

// Handler serves the read side of the article store.
type Handler struct {
	articles ports.ArticleStore
	jobs     ports.JobStore
	running  func() bool
	logger   *slog.Logger
}

// NewHandler builds the read API handlers. running may be nil.
func NewHandler(articles ports.ArticleStore, jobs ports.JobStore, running func() bool, logger *slog.Logger) *Handler {
	if running == nil {
		running = func() bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		articles: articles,
		jobs:     jobs,
		running:  running,
		logger:   logger.With("component", "api"),
	}
}

type pageData struct {
	Articles []domain.Article `json:"articles"`
	Total    int64            `json:"total"`
	Page     int64            `json:"page"`
	Pages    int64            `json:"pages"`
}

// Health reports liveness and whether a pipeline run is executing.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"pipelineRunning": h.running(),
	})
}

// ListArticles serves /api/news/all and /api/news/category/:category.
func (h *Handler) ListArticles(c *gin.Context) {
	page, ok := queryInt(c, "page", defaultPage, 1, maxPage)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultLimit, 1, maxLimit)
	if !ok {
		return
	}

	category := c.Param("category")
	if category == "" {
		category = c.Query("category")
	}

	articles, total, err := h.articles.ListArticles(c.Request.Context(), ports.ArticleQuery{
		Category: category,
		Skip:     (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to list articles", err)
		return
	}

	respond(c, pageData{
		Articles: articles,
		Total:    total,
		Page:     page,
		Pages:    (total + limit - 1) / limit,
	})
}

// Breaking returns up to ten ticker headlines, padded with the latest
// articles when fewer than five are breaking.
func (h *Handler) Breaking(c *gin.Context) {
	ctx := c.Request.Context()

	breaking, err := h.articles.ListBreaking(ctx, tickerSize)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to list breaking news", err)
		return
	}

	ticker := make([]string, 0, tickerSize)
	for _, a := range breaking {
		ticker = append(ticker, a.Title)
	}

	if len(ticker) < tickerMinimum {
		latest, _, err := h.articles.ListArticles(ctx, ports.ArticleQuery{Limit: int64(tickerSize - len(ticker))})
		if err != nil {
			h.fail(c, http.StatusInternalServerError, "failed to list latest news", err)
			return
		}
		for _, a := range latest {
			ticker = append(ticker, a.Title)
		}
	}

	if len(ticker) > tickerSize {
		ticker = ticker[:tickerSize]
	}
	respond(c, ticker)
}

// GetArticle returns one article with its full content.
func (h *Handler) GetArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	article, err := h.articles.GetArticle(c.Request.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		h.fail(c, http.StatusNotFound, "article not found", nil)
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to load article", err)
		return
	}
	respond(c, article)
}

// IncrementView bumps the view counter of one article.
func (h *Handler) IncrementView(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	views, err := h.articles.IncrementViews(c.Request.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		h.fail(c, http.StatusNotFound, "article not found", nil)
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to increment views", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "views": views})
}

// LatestJob returns the most recent pipeline run.
func (h *Handler) LatestJob(c *gin.Context) {
	job, err := h.jobs.LatestJob(c.Request.Context())
	if errors.Is(err, ports.ErrNotFound) {
		h.fail(c, http.StatusNotFound, "no jobs recorded", nil)
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to load job", err)
		return
	}
	respond(c, job)
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (h *Handler) fail(c *gin.Context, status int, detail string, err error) {
	if err != nil {
		h.logger.Error(detail, "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"success": false, "detail": detail})
}

// queryInt parses an optional integer query parameter within [lo, hi]; hi 0 means unbounded.
func queryInt(c *gin.Context, key string, def, lo, hi int64) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < lo || (hi > 0 && v > hi) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "detail": "invalid " + key})
		return 0, false
	}
	return v, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "detail": "invalid article id"})
		return 0, false
	}
	return id, true
}
