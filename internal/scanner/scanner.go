package scanner

import (
	"context"
	"fmt"
	"time"

	"NewsDesk/internal/domain"
)

// Request carries all parameters required to search one category.
type Request struct {
	Category string
	Query    string
	Terms    []string
	MaxTerms int
	Limit    int
	Since    time.Time
}

// Scanner captures a single search strategy (single keyword query, per-district fan-out, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawArticle, error)
}

// Registry maps category strategies to scanners. Categories without a
// strategy use the fallback.
type Registry struct {
	fallback string
	byName   map[string]Scanner
}

// NewRegistry builds an empty registry that resolves blank strategies to
// fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{fallback: fallback, byName: map[string]Scanner{}}
}

// Register makes s available under s.Name(). A later scanner with the same
// name wins.
func (r *Registry) Register(s Scanner) {
	if r.byName == nil {
		r.byName = map[string]Scanner{}
	}
	r.byName[s.Name()] = s
}

// Resolve picks the scanner for a category strategy.
func (r *Registry) Resolve(strategy string) (Scanner, error) {
	if strategy == "" {
		strategy = r.fallback
	}
	s, ok := r.byName[strategy]
	if !ok {
		return nil, fmt.Errorf("no scanner for strategy %q", strategy)
	}
	return s, nil
}
