package parser

import (
	"context"
	"fmt"

	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/scanner"
)

const defaultMaxTerms = 3

// DistrictScanner searches once per sub-region term and concatenates the hits.
type DistrictScanner struct {
	searcher ports.ArticleSearcher
	language string
	sortBy   string
}

var _ scanner.Scanner = (*DistrictScanner)(nil)

// NewDistrictScanner wires the search client with language and sort order.
func NewDistrictScanner(searcher ports.ArticleSearcher, language, sortBy string) *DistrictScanner {
	return &DistrictScanner{searcher: searcher, language: language, sortBy: sortBy}
}

// Name identifies the strategy inside the registry.
func (d *DistrictScanner) Name() string {
	return config.StrategyDistrict
}

// Scan queries the first MaxTerms terms in order. Any failed term fails the
// whole category; StrategySource turns that into an empty result.
func (d *DistrictScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawArticle, error) {
	terms := req.Terms
	if len(terms) == 0 {
		return nil, fmt.Errorf("category %s has no district terms", req.Category)
	}

	maxTerms := req.MaxTerms
	if maxTerms <= 0 {
		maxTerms = defaultMaxTerms
	}
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}

	var aggregated []domain.RawArticle
	for _, term := range terms {
		hits, err := d.searcher.Search(ctx, domain.SearchQuery{
			Query:    term,
			From:     req.Since,
			Language: d.language,
			SortBy:   d.sortBy,
			PageSize: req.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("search district %q: %w", term, err)
		}
		aggregated = append(aggregated, hits...)
	}

	return aggregated, nil
}
