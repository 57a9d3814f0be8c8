package ports

import (
	"context"
	"errors"
	"time"

	"NewsDesk/internal/domain"
)

var (
	// ErrNotFound is returned by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateArticle is returned when an insert collides with an existing sourceUrl.
	ErrDuplicateArticle = errors.New("duplicate article")
)

// ArticleSearcher queries the external news search service.
type ArticleSearcher interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawArticle, error)
}

// SourceFetcher pulls normalized source articles per category.
type SourceFetcher interface {
	FetchCategory(ctx context.Context, category string, limit int) []domain.SourceArticle
	FetchAll(ctx context.Context) []domain.CategoryBatch
}

// ChatClient sends one single-turn prompt to an LLM chat service.
type ChatClient interface {
	Complete(ctx context.Context, req domain.ChatRequest) (string, error)
}

// Rewriter turns a source article into a house-style article.
type Rewriter interface {
	Rewrite(ctx context.Context, source domain.SourceArticle) (*domain.RewrittenArticle, error)
}

// ArticleQuery filters the read-side article listing.
type ArticleQuery struct {
	Category string
	Skip     int64
	Limit    int64
}

// ArticleStore persists articles. The pipeline only inserts; the read API
// lists, looks up and bumps view counters.
type ArticleStore interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*domain.Article, error)
	NextArticleID(ctx context.Context) (int64, error)
	InsertArticle(ctx context.Context, article domain.Article) error
	GetArticle(ctx context.Context, articleID int64) (*domain.Article, error)
	ListArticles(ctx context.Context, query ArticleQuery) ([]domain.Article, int64, error)
	ListBreaking(ctx context.Context, limit int64) ([]domain.Article, error)
	IncrementViews(ctx context.Context, articleID int64) (int64, error)
}

// JobStore tracks pipeline runs.
type JobStore interface {
	InsertJob(ctx context.Context, job domain.FetchJob) error
	UpdateJob(ctx context.Context, job domain.FetchJob) error
	FindRunningJob(ctx context.Context) (*domain.FetchJob, error)
	LatestJob(ctx context.Context) (*domain.FetchJob, error)
}

// Store is the full persistence surface handed out by the storage factory.
type Store interface {
	ArticleStore
	JobStore
	Close(ctx context.Context) error
}

// RunLock guards against overlapping runs across processes.
type RunLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
