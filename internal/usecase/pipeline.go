package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/metrics"
	"NewsDesk/internal/ports"
)

// ErrRunInProgress is returned when another run holds the pipeline.
var ErrRunInProgress = errors.New("pipeline run already in progress")

const (
	finalizeTimeout  = 30 * time.Second
	abandonedMessage = "abandoned"
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Fetcher  ports.SourceFetcher
	Rewriter ports.Rewriter
	Articles ports.ArticleStore
	Jobs     ports.JobStore
	Lock     ports.RunLock
	Notifier ports.Notifier
	Metrics  *metrics.Metrics
	// Limiter paces rewrite calls; nil means no pause between articles.
	Limiter *rate.Limiter
	Logger  *slog.Logger

	Author           string
	PlaceholderImage string
	// StaleJobAfter is how old a running job may get before a new run takes over.
	StaleJobAfter time.Duration

	Now   func() time.Time
	NewID func() string
}

// Pipeline implements the fetch, rewrite, dedup and store workflow.
type Pipeline struct {
	fetcher  ports.SourceFetcher
	rewriter ports.Rewriter
	articles ports.ArticleStore
	jobs     ports.JobStore
	lock     ports.RunLock
	notifier ports.Notifier
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	logger   *slog.Logger

	author           string
	placeholderImage string
	staleJobAfter    time.Duration

	now   func() time.Time
	newID func() string

	running atomic.Bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Pipeline{
		fetcher:          deps.Fetcher,
		rewriter:         deps.Rewriter,
		articles:         deps.Articles,
		jobs:             deps.Jobs,
		lock:             deps.Lock,
		notifier:         deps.Notifier,
		metrics:          deps.Metrics,
		limiter:          deps.Limiter,
		logger:           logger.With("component", "pipeline"),
		author:           deps.Author,
		placeholderImage: deps.PlaceholderImage,
		staleJobAfter:    deps.StaleJobAfter,
		now:              now,
		newID:            newID,
	}
}

// Running reports whether a run is executing in this process.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes one ingestion pass and returns its job record. Per-article
// failures are logged and skipped; only cancellation of ctx fails the job.
func (p *Pipeline) Run(ctx context.Context) (domain.FetchJob, error) {
	if p.fetcher == nil || p.rewriter == nil || p.articles == nil || p.jobs == nil {
		return domain.FetchJob{}, errors.New("pipeline misconfigured")
	}

	if !p.running.CompareAndSwap(false, true) {
		return domain.FetchJob{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	if p.lock != nil {
		ok, err := p.lock.TryLock(ctx)
		if err != nil {
			return domain.FetchJob{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return domain.FetchJob{}, ErrRunInProgress
		}
		defer func() {
			if err := p.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("release run lock", "error", err)
			}
		}()
	}

	if err := p.takeOverStaleJob(ctx); err != nil {
		return domain.FetchJob{}, err
	}

	job := domain.FetchJob{
		JobID:     p.newID(),
		Status:    domain.JobRunning,
		StartTime: p.now(),
	}
	if err := p.jobs.InsertJob(ctx, job); err != nil {
		return domain.FetchJob{}, fmt.Errorf("insert job: %w", err)
	}

	log := p.logger.With("job_id", job.JobID)
	log.Info("run started")
	p.metrics.RunStarted()

	processed, breaking, runErr := p.processAll(ctx, log)

	end := p.now()
	job.ArticlesProcessed = processed
	job.EndTime = &end
	job.Status = domain.JobCompleted
	if runErr != nil {
		job.Status = domain.JobFailed
		job.Error = runErr.Error()
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := p.jobs.UpdateJob(finishCtx, job); err != nil {
		log.Error("finalize job", "status", job.Status, "error", err)
	}
	p.metrics.RunFinished(string(job.Status), end.Sub(job.StartTime))

	if runErr != nil {
		log.Error("run failed", "processed", processed, "error", runErr)
		return job, runErr
	}

	log.Info("run completed", "processed", processed, "breaking", len(breaking), "elapsed", end.Sub(job.StartTime))
	p.publishBreaking(finishCtx, log, breaking)
	return job, nil
}

// takeOverStaleJob refuses to start while a fresh running job exists and marks
// an old one as failed.
func (p *Pipeline) takeOverStaleJob(ctx context.Context) error {
	running, err := p.jobs.FindRunningJob(ctx)
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check running job: %w", err)
	}

	age := p.now().Sub(running.StartTime)
	if p.staleJobAfter <= 0 || age < p.staleJobAfter {
		return ErrRunInProgress
	}

	end := p.now()
	running.Status = domain.JobFailed
	running.Error = abandonedMessage
	running.EndTime = &end
	if err := p.jobs.UpdateJob(ctx, *running); err != nil {
		return fmt.Errorf("abandon stale job %s: %w", running.JobID, err)
	}
	p.logger.Warn("stale job abandoned", "job_id", running.JobID, "age", age)
	return nil
}

// processAll turns a panic outside the per-article guard into a run error so
// the job is still finalized.
func (p *Pipeline) processAll(ctx context.Context, log *slog.Logger) (processed int, breaking []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	batches := p.fetcher.FetchAll(ctx)
	for _, batch := range batches {
		p.metrics.Fetched(batch.Category, len(batch.Articles))
		log.Info("processing category", "category", batch.Category, "articles", len(batch.Articles))

		for _, source := range batch.Articles {
			if err := ctx.Err(); err != nil {
				return processed, breaking, err
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return processed, breaking, err
				}
			}

			article, outcome, err := p.processOne(ctx, source)
			p.metrics.Article(batch.Category, outcome)

			switch outcome {
			case metrics.OutcomeInserted:
				processed++
				if article.IsBreaking {
					breaking = append(breaking, *article)
				}
				log.Debug("article stored", "article_id", article.ArticleID, "source_url", source.SourceURL)
			case metrics.OutcomeDuplicate:
				log.Info("duplicate skipped", "source_url", source.SourceURL)
			case metrics.OutcomeRewriteFailed:
				log.Warn("rewrite failed, article skipped", "source_url", source.SourceURL, "error", err)
			default:
				log.Error("article failed", "source_url", source.SourceURL, "error", err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return processed, breaking, err
	}
	return processed, breaking, nil
}

// processOne never panics; a panic from an adapter becomes an error outcome.
func (p *Pipeline) processOne(ctx context.Context, source domain.SourceArticle) (article *domain.Article, outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			article, outcome, err = nil, metrics.OutcomeError, fmt.Errorf("panic: %v", r)
		}
	}()

	rewritten, err := p.rewriter.Rewrite(ctx, source)
	if err != nil || rewritten == nil {
		return nil, metrics.OutcomeRewriteFailed, err
	}

	if rewritten.SourceURL != "" {
		_, err := p.articles.FindBySourceURL(ctx, rewritten.SourceURL)
		if err == nil {
			return nil, metrics.OutcomeDuplicate, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, metrics.OutcomeError, fmt.Errorf("dedup lookup: %w", err)
		}
	}

	id, err := p.articles.NextArticleID(ctx)
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("next article id: %w", err)
	}

	built := p.buildArticle(id, rewritten)
	if err := p.articles.InsertArticle(ctx, built); err != nil {
		if errors.Is(err, ports.ErrDuplicateArticle) {
			return nil, metrics.OutcomeDuplicate, nil
		}
		return nil, metrics.OutcomeError, fmt.Errorf("insert article: %w", err)
	}
	return &built, metrics.OutcomeInserted, nil
}

func (p *Pipeline) buildArticle(id int64, r *domain.RewrittenArticle) domain.Article {
	now := p.now()
	image := r.Image
	if image == "" {
		image = p.placeholderImage
	}

	return domain.Article{
		ArticleID:         id,
		Title:             r.Title,
		Summary:           r.Summary,
		Content:           r.Content,
		Category:          r.Category,
		District:          r.District,
		Image:             image,
		Date:              now,
		Author:            p.author,
		Views:             0,
		SourceTitle:       r.SourceTitle,
		SourceURL:         r.SourceURL,
		SourcePublishedAt: r.SourcePublishedAt,
		IsBreaking:        domain.IsBreakingPriority(r.Priority),
		Priority:          r.Priority,
		AIGenerated:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (p *Pipeline) publishBreaking(ctx context.Context, log *slog.Logger, breaking []domain.Article) {
	if p.notifier == nil || len(breaking) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(breaking)); err != nil {
		log.Warn("publish breaking digest", "error", err)
	}
}

func buildDigestMessage(articles []domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ब्रेकिंग न्यूज़ (%d)\n\n", len(articles))
	for _, a := range articles {
		fmt.Fprintf(&b, "- %s\n%s\n", a.Title, a.Summary)
		if a.SourceURL != "" {
			fmt.Fprintf(&b, "%s\n", a.SourceURL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
