package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/logging"
)

const (
	testAuthor      = "डेस्क"
	testPlaceholder = "https://example.com/placeholder.jpg"
)

var runStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestPipeline(store *memStore, fetcher *stubFetcher, rewriter *echoRewriter, mutate func(*PipelineDeps)) *Pipeline {
	clock := &fixedClock{now: runStart}
	deps := PipelineDeps{
		Fetcher:          fetcher,
		Rewriter:         rewriter,
		Articles:         store,
		Jobs:             store,
		Logger:           logging.Discard(),
		Author:           testAuthor,
		PlaceholderImage: testPlaceholder,
		StaleJobAfter:    4 * time.Hour,
		Now:              clock.Now,
		NewID:            sequentialIDs(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewPipeline(deps)
}

func TestRunSkipsExistingSourceURL(t *testing.T) {
	store := &memStore{articles: []domain.Article{{ArticleID: 5, SourceURL: "https://news.example/x/1"}}}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "अपराध", Articles: []domain.SourceArticle{
			source("https://news.example/x/1", 9),
			source("https://news.example/x/2", 9),
		}},
		{Category: "राजनीति", Articles: []domain.SourceArticle{
			source("https://news.example/x/2", 8),
		}},
	}}
	notifier := &mockNotifier{}
	notifier.On("PublishDigest", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "नया title https://news.example/x/2")
	})).Return(nil).Once()

	p := newTestPipeline(store, fetcher, &echoRewriter{}, func(d *PipelineDeps) {
		d.Notifier = notifier
		d.Limiter = rate.NewLimiter(rate.Inf, 1)
	})

	job, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 1, job.ArticlesProcessed)
	require.NotNil(t, job.EndTime)

	stored := store.job(job.JobID)
	assert.Equal(t, domain.JobCompleted, stored.Status)
	assert.Equal(t, 1, stored.ArticlesProcessed)

	require.Len(t, store.articles, 2)
	inserted := store.articles[1]
	assert.Equal(t, int64(6), inserted.ArticleID)
	assert.Equal(t, "https://news.example/x/2", inserted.SourceURL)
	assert.True(t, inserted.IsBreaking)
	assert.True(t, inserted.AIGenerated)
	assert.Equal(t, int64(0), inserted.Views)
	assert.Equal(t, testAuthor, inserted.Author)
	assert.Equal(t, testPlaceholder, inserted.Image)
	assert.Equal(t, runStart, inserted.Date)

	notifier.AssertExpectations(t)
}

func TestRunAssignsSequentialIDsFromEmptyStore(t *testing.T) {
	store := &memStore{}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{
			source("https://news.example/a", 5),
			source("https://news.example/b", 9),
		}},
	}}

	job, err := newTestPipeline(store, fetcher, &echoRewriter{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, job.ArticlesProcessed)

	require.Len(t, store.articles, 2)
	assert.Equal(t, int64(1), store.articles[0].ArticleID)
	assert.False(t, store.articles[0].IsBreaking)
	assert.Equal(t, int64(2), store.articles[1].ArticleID)
	assert.True(t, store.articles[1].IsBreaking)
}

func TestRunCounterIDsSkipFailedInsert(t *testing.T) {
	store := &counterStore{memStore: &memStore{
		failInsert: map[string]error{"https://news.example/b": errors.New("write timeout")},
	}}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{
			source("https://news.example/a", 5),
			source("https://news.example/b", 5),
			source("https://news.example/c", 5),
		}},
	}}

	job, err := newTestPipeline(store.memStore, fetcher, &echoRewriter{}, func(d *PipelineDeps) {
		d.Articles = store
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, job.ArticlesProcessed)

	require.Len(t, store.articles, 2)
	assert.Equal(t, int64(1), store.articles[0].ArticleID)
	assert.Equal(t, int64(3), store.articles[1].ArticleID)
}

func TestRunCompletesWhenEveryRewriteFails(t *testing.T) {
	store := &memStore{}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{source("a", 9), source("b", 9)}},
	}}
	rewriter := &echoRewriter{fail: map[string]error{
		"a": errors.New("llm down"),
		"b": errors.New("llm down"),
	}}
	notifier := &mockNotifier{}

	job, err := newTestPipeline(store, fetcher, rewriter, func(d *PipelineDeps) { d.Notifier = notifier }).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 0, job.ArticlesProcessed)
	assert.Empty(t, store.articles)
	assert.Equal(t, 2, rewriter.calls)
	notifier.AssertNotCalled(t, "PublishDigest", mock.Anything, mock.Anything)
}

func TestRunIsolatesArticleFailures(t *testing.T) {
	store := &memStore{failInsert: map[string]error{"a": errors.New("disk full")}}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{source("a", 5), source("boom", 5), source("c", 5)}},
	}}
	rewriter := &echoRewriter{panic: map[string]bool{"boom": true}}

	job, err := newTestPipeline(store, fetcher, rewriter, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 1, job.ArticlesProcessed)
	require.Len(t, store.articles, 1)
	assert.Equal(t, "c", store.articles[0].SourceURL)
}

func TestRunKeepsArticlesWithoutSourceURL(t *testing.T) {
	store := &memStore{}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{source("", 5), source("", 5)}},
	}}

	job, err := newTestPipeline(store, fetcher, &echoRewriter{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, job.ArticlesProcessed)
}

func TestRunFailsJobOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memStore{}
	fetcher := &stubFetcher{batches: []domain.CategoryBatch{
		{Category: "खेल", Articles: []domain.SourceArticle{source("a", 5), source("b", 5)}},
	}}
	rewriter := &echoRewriter{hook: func(s domain.SourceArticle) {
		if s.SourceURL == "a" {
			cancel()
		}
	}}

	job, err := newTestPipeline(store, fetcher, rewriter, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.JobFailed, job.Status)

	stored := store.job(job.JobID)
	assert.Equal(t, domain.JobFailed, stored.Status)
	assert.Equal(t, context.Canceled.Error(), stored.Error)
	assert.Equal(t, 1, stored.ArticlesProcessed)
	require.NotNil(t, stored.EndTime)
	assert.Len(t, store.articles, 1)
}

func TestRunFailsJobWhenFetchPanics(t *testing.T) {
	store := &memStore{}
	fetcher := &panickingFetcher{}
	p := newTestPipeline(store, &stubFetcher{}, &echoRewriter{}, func(d *PipelineDeps) {
		d.Fetcher = fetcher
		d.StaleJobAfter = 0
	})

	job, err := p.Run(context.Background())
	require.ErrorContains(t, err, "panic: source down")
	assert.Equal(t, domain.JobFailed, job.Status)

	stored := store.job(job.JobID)
	assert.Equal(t, domain.JobFailed, stored.Status)
	assert.Equal(t, "panic: source down", stored.Error)
	require.NotNil(t, stored.EndTime)
	assert.False(t, p.Running())

	fetcher.healthy = true
	next, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, next.Status)
}

func TestRunRejectsOverlap(t *testing.T) {
	store := &memStore{}
	fetcher := &stubFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	p := newTestPipeline(store, fetcher, &echoRewriter{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()

	<-fetcher.entered
	assert.True(t, p.Running())
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.False(t, p.Running())
	assert.Len(t, store.jobs, 1)
}

func TestRunRespectsFreshRunningJob(t *testing.T) {
	store := &memStore{jobs: []domain.FetchJob{{
		JobID:     "other",
		Status:    domain.JobRunning,
		StartTime: runStart.Add(-time.Hour),
	}}}

	_, err := newTestPipeline(store, &stubFetcher{}, &echoRewriter{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Len(t, store.jobs, 1)
}

func TestRunTakesOverStaleJob(t *testing.T) {
	store := &memStore{jobs: []domain.FetchJob{{
		JobID:     "stale",
		Status:    domain.JobRunning,
		StartTime: runStart.Add(-5 * time.Hour),
	}}}

	job, err := newTestPipeline(store, &stubFetcher{}, &echoRewriter{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)

	stale := store.job("stale")
	assert.Equal(t, domain.JobFailed, stale.Status)
	assert.Equal(t, "abandoned", stale.Error)
	require.NotNil(t, stale.EndTime)
}

func TestRunHonoursRunLock(t *testing.T) {
	lock := &stubLock{held: true}
	store := &memStore{}

	_, err := newTestPipeline(store, &stubFetcher{}, &echoRewriter{}, func(d *PipelineDeps) { d.Lock = lock }).Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, store.jobs)

	lock.held = false
	_, err = newTestPipeline(store, &stubFetcher{}, &echoRewriter{}, func(d *PipelineDeps) { d.Lock = lock }).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lock.unlocked)
	assert.False(t, lock.held)
}

func TestRunWithoutDependencies(t *testing.T) {
	_, err := NewPipeline(PipelineDeps{}).Run(context.Background())
	assert.Error(t, err)
}

func TestBuildDigestMessage(t *testing.T) {
	msg := buildDigestMessage([]domain.Article{
		{Title: "पहली", Summary: "सार 1", SourceURL: "https://news.example/1"},
		{Title: "दूसरी", Summary: "सार 2"},
	})

	assert.True(t, strings.HasPrefix(msg, "ब्रेकिंग न्यूज़ (2)"))
	assert.Contains(t, msg, "- पहली\nसार 1\nhttps://news.example/1")
	assert.True(t, strings.HasSuffix(msg, "सार 2"))
}
