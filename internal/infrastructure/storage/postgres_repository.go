package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	article_id          BIGINT PRIMARY KEY,
	title               TEXT NOT NULL,
	summary             TEXT NOT NULL,
	content             TEXT NOT NULL,
	category            TEXT NOT NULL,
	district            TEXT,
	image               TEXT NOT NULL,
	date                TIMESTAMPTZ NOT NULL,
	author              TEXT NOT NULL,
	views               BIGINT NOT NULL DEFAULT 0,
	source_title        TEXT NOT NULL DEFAULT '',
	source_url          TEXT NOT NULL DEFAULT '',
	source_published_at TIMESTAMPTZ,
	is_breaking         BOOLEAN NOT NULL DEFAULT FALSE,
	priority            INTEGER NOT NULL,
	ai_generated        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS articles_source_url_key ON articles (source_url) WHERE source_url <> '';
CREATE INDEX IF NOT EXISTS articles_category_date_idx ON articles (category, date DESC);
CREATE INDEX IF NOT EXISTS articles_breaking_date_idx ON articles (is_breaking, date DESC);

CREATE TABLE IF NOT EXISTS fetch_jobs (
	job_id             TEXT PRIMARY KEY,
	status             TEXT NOT NULL,
	articles_processed INTEGER NOT NULL DEFAULT 0,
	start_time         TIMESTAMPTZ NOT NULL,
	end_time           TIMESTAMPTZ,
	error              TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS fetch_jobs_status_start_idx ON fetch_jobs (status, start_time DESC);

CREATE TABLE IF NOT EXISTS counters (
	name  TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);`

// nextArticleIDQuery seeds the counter from max(article_id) and bumps it in one statement.
const nextArticleIDQuery = `
INSERT INTO counters (name, value)
SELECT 'article_id', COALESCE(MAX(article_id), 0) + 1 FROM articles
ON CONFLICT (name) DO UPDATE
SET value = GREATEST(counters.value, EXCLUDED.value - 1) + 1
RETURNING value`

var (
	articleColumns = []string{
		"article_id", "title", "summary", "content", "category", "district", "image", "date",
		"author", "views", "source_title", "source_url", "source_published_at", "is_breaking",
		"priority", "ai_generated", "created_at", "updated_at",
	}
	articleListColumns = []string{
		"article_id", "title", "summary", "category", "district", "image", "date",
		"author", "views", "source_title", "source_url", "source_published_at", "is_breaking",
		"priority", "ai_generated", "created_at", "updated_at",
	}
	jobColumns = []string{"job_id", "status", "articles_processed", "start_time", "end_time", "error"}
)

// PostgresRepository persists articles and fetch jobs into Postgres.
type PostgresRepository struct {
	db  *sqlx.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.Store = (*PostgresRepository)(nil)

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// NewPostgresRepository wires an sqlx.DB implementation.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates tables and indexes when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FindBySourceURL returns ports.ErrNotFound when no article carries sourceURL.
func (r *PostgresRepository) FindBySourceURL(ctx context.Context, sourceURL string) (*domain.Article, error) {
	return r.getArticle(ctx, sq.Eq{"source_url": sourceURL})
}

// GetArticle looks an article up by its numeric id.
func (r *PostgresRepository) GetArticle(ctx context.Context, articleID int64) (*domain.Article, error) {
	return r.getArticle(ctx, sq.Eq{"article_id": articleID})
}

func (r *PostgresRepository) getArticle(ctx context.Context, where sq.Eq) (*domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).From("articles").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	var article domain.Article
	if err := r.db.GetContext(ctx, &article, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &article, nil
}

// NextArticleID returns max(article_id)+1 backed by an atomic counter row.
func (r *PostgresRepository) NextArticleID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, nextArticleIDQuery); err != nil {
		return 0, fmt.Errorf("next article id: %w", err)
	}
	return id, nil
}

// InsertArticle stores a new article; a source_url collision yields ports.ErrDuplicateArticle.
func (r *PostgresRepository) InsertArticle(ctx context.Context, a domain.Article) error {
	query, args, err := r.sb.Insert("articles").
		Columns(articleColumns...).
		Values(
			a.ArticleID, a.Title, a.Summary, a.Content, a.Category, a.District, a.Image, a.Date,
			a.Author, a.Views, a.SourceTitle, a.SourceURL, a.SourcePublishedAt, a.IsBreaking,
			a.Priority, a.AIGenerated, a.CreatedAt, a.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ports.ErrDuplicateArticle, a.SourceURL)
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ListArticles returns one page, newest first, and the total matching count.
func (r *PostgresRepository) ListArticles(ctx context.Context, q ports.ArticleQuery) ([]domain.Article, int64, error) {
	count := r.sb.Select("COUNT(*)").From("articles")
	page := r.sb.Select(articleListColumns...).From("articles").OrderBy("date DESC").Offset(uint64(max(q.Skip, 0)))
	if q.Category != "" {
		count = count.Where(sq.Eq{"category": q.Category})
		page = page.Where(sq.Eq{"category": q.Category})
	}
	if q.Limit > 0 {
		page = page.Limit(uint64(q.Limit))
	}

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	articles, err := r.selectArticles(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ListBreaking returns the newest breaking articles.
func (r *PostgresRepository) ListBreaking(ctx context.Context, limit int64) ([]domain.Article, error) {
	page := r.sb.Select(articleListColumns...).From("articles").
		Where(sq.Eq{"is_breaking": true}).
		OrderBy("date DESC")
	if limit > 0 {
		page = page.Limit(uint64(limit))
	}
	return r.selectArticles(ctx, page)
}

func (r *PostgresRepository) selectArticles(ctx context.Context, builder sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	articles := make([]domain.Article, 0)
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (r *PostgresRepository) IncrementViews(ctx context.Context, articleID int64) (int64, error) {
	query, args, err := r.sb.Update("articles").
		Set("views", sq.Expr("views + 1")).
		Set("updated_at", r.now()).
		Where(sq.Eq{"article_id": articleID}).
		Suffix("RETURNING views").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment: %w", err)
	}

	var views int64
	if err := r.db.GetContext(ctx, &views, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ports.ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// InsertJob records a new run.
func (r *PostgresRepository) InsertJob(ctx context.Context, job domain.FetchJob) error {
	query, args, err := r.sb.Insert("fetch_jobs").
		Columns(jobColumns...).
		Values(job.JobID, job.Status, job.ArticlesProcessed, job.StartTime, job.EndTime, job.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("build job insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob writes the mutable fields of a run.
func (r *PostgresRepository) UpdateJob(ctx context.Context, job domain.FetchJob) error {
	query, args, err := r.sb.Update("fetch_jobs").
		Set("status", job.Status).
		Set("articles_processed", job.ArticlesProcessed).
		Set("end_time", job.EndTime).
		Set("error", job.Error).
		Where(sq.Eq{"job_id": job.JobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build job update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job %s: %w", job.JobID, ports.ErrNotFound)
	}
	return nil
}

// FindRunningJob returns the newest job still marked running.
func (r *PostgresRepository) FindRunningJob(ctx context.Context) (*domain.FetchJob, error) {
	return r.getJob(ctx, r.sb.Select(jobColumns...).From("fetch_jobs").Where(sq.Eq{"status": domain.JobRunning}))
}

// LatestJob returns the most recently started job.
func (r *PostgresRepository) LatestJob(ctx context.Context) (*domain.FetchJob, error) {
	return r.getJob(ctx, r.sb.Select(jobColumns...).From("fetch_jobs"))
}

func (r *PostgresRepository) getJob(ctx context.Context, builder sq.SelectBuilder) (*domain.FetchJob, error) {
	query, args, err := builder.OrderBy("start_time DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job query: %w", err)
	}

	var job domain.FetchJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close(context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
