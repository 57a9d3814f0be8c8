package parser

import (
	"context"
	"fmt"

	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/scanner"
)

// KeywordScanner issues one search per category using its keyword query.
type KeywordScanner struct {
	searcher ports.ArticleSearcher
	language string
	sortBy   string
}

var _ scanner.Scanner = (*KeywordScanner)(nil)

// NewKeywordScanner wires the search client with language and sort order.
func NewKeywordScanner(searcher ports.ArticleSearcher, language, sortBy string) *KeywordScanner {
	return &KeywordScanner{searcher: searcher, language: language, sortBy: sortBy}
}

// Name identifies the strategy inside the registry.
func (k *KeywordScanner) Name() string {
	return config.StrategyKeyword
}

// Scan runs the category query once.
func (k *KeywordScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawArticle, error) {
	query := req.Query
	if query == "" {
		query = req.Category
	}

	hits, err := k.searcher.Search(ctx, domain.SearchQuery{
		Query:    query,
		From:     req.Since,
		Language: k.language,
		SortBy:   k.sortBy,
		PageSize: req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return hits, nil
}
