package parser

import (
	"context"
	"log/slog"
	"time"

	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/scanner"
)

const (
	defaultPriority   = 5
	defaultLimit      = 10
	defaultWindowDays = 2
)

// StrategySource implements SourceFetcher via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	categories []config.CategoryConfig
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.SourceFetcher = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined categories.
func NewStrategySource(reg *scanner.Registry, categories []config.CategoryConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:   reg,
		categories: categories,
		logger:     log,
		now:        time.Now,
	}
}

// FetchAll fetches every configured category, the local category first.
// A failing category yields an empty batch; it never aborts the others.
func (s *StrategySource) FetchAll(ctx context.Context) []domain.CategoryBatch {
	ordered := make([]config.CategoryConfig, 0, len(s.categories))
	for _, cat := range s.categories {
		if cat.Local {
			ordered = append(ordered, cat)
		}
	}
	for _, cat := range s.categories {
		if !cat.Local {
			ordered = append(ordered, cat)
		}
	}

	batches := make([]domain.CategoryBatch, 0, len(ordered))
	total := 0
	for _, cat := range ordered {
		articles := s.fetch(ctx, cat, cat.Limit)
		total += len(articles)
		batches = append(batches, domain.CategoryBatch{
			Category: cat.Name,
			Slug:     cat.Slug,
			Articles: articles,
		})
	}

	s.info("fetched all categories", "categories", len(batches), "articles", total)
	return batches
}

// FetchCategory fetches a single category by label or slug. Unknown categories
// are searched with their own name as the keyword query.
func (s *StrategySource) FetchCategory(ctx context.Context, category string, limit int) []domain.SourceArticle {
	cat, ok := s.lookup(category)
	if !ok {
		cat = config.CategoryConfig{
			Name:       category,
			Slug:       category,
			Query:      category,
			Priority:   defaultPriority,
			Strategy:   config.StrategyKeyword,
			WindowDays: defaultWindowDays,
		}
	}
	return s.fetch(ctx, cat, limit)
}

func (s *StrategySource) fetch(ctx context.Context, cat config.CategoryConfig, limit int) []domain.SourceArticle {
	if limit <= 0 {
		limit = cat.Limit
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	window := cat.WindowDays
	if window <= 0 {
		window = defaultWindowDays
	}
	priority := cat.Priority
	if priority <= 0 {
		priority = defaultPriority
	}

	strategy, err := s.registry.Resolve(cat.Strategy)
	if err != nil {
		s.logError("resolve strategy", "category", cat.Slug, "strategy", cat.Strategy, "error", err)
		return []domain.SourceArticle{}
	}

	raw, err := strategy.Scan(ctx, scanner.Request{
		Category: cat.Name,
		Query:    cat.Query,
		Terms:    cat.Terms,
		MaxTerms: cat.MaxTerms,
		Limit:    limit,
		Since:    s.now().AddDate(0, 0, -window),
	})
	if err != nil {
		s.logError("fetch category", "category", cat.Slug, "error", err)
		return []domain.SourceArticle{}
	}

	articles := make([]domain.SourceArticle, 0, len(raw))
	for _, hit := range raw {
		article, ok := normalizeArticle(hit, cat.Name, priority)
		if !ok {
			s.warn("skip malformed article", "category", cat.Slug, "source", hit.SourceName)
			continue
		}
		articles = append(articles, article)
	}

	s.info("fetched category", "category", cat.Slug, "articles", len(articles))
	return articles
}

func (s *StrategySource) lookup(category string) (config.CategoryConfig, bool) {
	for _, cat := range s.categories {
		if cat.Name == category || cat.Slug == category {
			return cat, true
		}
	}
	return config.CategoryConfig{}, false
}

func (s *StrategySource) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *StrategySource) logError(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
