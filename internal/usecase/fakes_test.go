package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

type memStore struct {
	mu         sync.Mutex
	articles   []domain.Article
	jobs       []domain.FetchJob
	failInsert map[string]error
}

func (m *memStore) FindBySourceURL(_ context.Context, sourceURL string) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.SourceURL == sourceURL {
			found := a
			return &found, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) NextArticleID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var top int64
	for _, a := range m.articles {
		top = max(top, a.ArticleID)
	}
	return top + 1, nil
}

func (m *memStore) InsertArticle(_ context.Context, article domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failInsert[article.SourceURL]; err != nil {
		return err
	}
	for _, a := range m.articles {
		if article.SourceURL != "" && a.SourceURL == article.SourceURL {
			return ports.ErrDuplicateArticle
		}
	}
	m.articles = append(m.articles, article)
	return nil
}

func (m *memStore) GetArticle(_ context.Context, id int64) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.ArticleID == id {
			found := a
			return &found, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) ListArticles(context.Context, ports.ArticleQuery) ([]domain.Article, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Article(nil), m.articles...), int64(len(m.articles)), nil
}

func (m *memStore) ListBreaking(context.Context, int64) ([]domain.Article, error) {
	return nil, nil
}

func (m *memStore) IncrementViews(context.Context, int64) (int64, error) {
	return 0, nil
}

func (m *memStore) InsertJob(_ context.Context, job domain.FetchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memStore) UpdateJob(_ context.Context, job domain.FetchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].JobID == job.JobID {
			m.jobs[i] = job
			return nil
		}
	}
	return ports.ErrNotFound
}

func (m *memStore) FindRunningJob(context.Context) (*domain.FetchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.jobs) - 1; i >= 0; i-- {
		if m.jobs[i].Status == domain.JobRunning {
			found := m.jobs[i]
			return &found, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) LatestJob(context.Context) (*domain.FetchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil, ports.ErrNotFound
	}
	found := m.jobs[len(m.jobs)-1]
	return &found, nil
}

func (m *memStore) job(id string) domain.FetchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.JobID == id {
			return j
		}
	}
	return domain.FetchJob{}
}

// counterStore hands out ids from a counter the way the database stores do,
// so an id taken for a failed insert is never reused.
type counterStore struct {
	*memStore
	last int64
}

func (c *counterStore) NextArticleID(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	return c.last, nil
}

type stubFetcher struct {
	batches []domain.CategoryBatch
	// entered and release let a test hold a run inside FetchAll.
	entered chan struct{}
	release chan struct{}
}

func (f *stubFetcher) FetchCategory(context.Context, string, int) []domain.SourceArticle {
	return nil
}

func (f *stubFetcher) FetchAll(context.Context) []domain.CategoryBatch {
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	return f.batches
}

// panickingFetcher panics until it is marked healthy.
type panickingFetcher struct {
	healthy bool
}

func (f *panickingFetcher) FetchCategory(context.Context, string, int) []domain.SourceArticle {
	return nil
}

func (f *panickingFetcher) FetchAll(context.Context) []domain.CategoryBatch {
	if !f.healthy {
		panic("source down")
	}
	return nil
}

// echoRewriter copies the source title into every section.
type echoRewriter struct {
	fail  map[string]error
	panic map[string]bool
	hook  func(domain.SourceArticle)
	calls int
}

func (r *echoRewriter) Rewrite(_ context.Context, s domain.SourceArticle) (*domain.RewrittenArticle, error) {
	r.calls++
	if r.hook != nil {
		r.hook(s)
	}
	if r.panic[s.SourceURL] {
		panic("bad article")
	}
	if err := r.fail[s.SourceURL]; err != nil {
		return nil, err
	}
	return &domain.RewrittenArticle{
		Title:             "नया " + s.SourceTitle,
		Summary:           "सार",
		Content:           "लेख",
		Category:          s.Category,
		Image:             s.SourceImage,
		SourceTitle:       s.SourceTitle,
		SourceURL:         s.SourceURL,
		SourcePublishedAt: s.SourcePublishedAt,
		Priority:          s.Priority,
	}, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PublishDigest(ctx context.Context, digest string) error {
	return m.Called(ctx, digest).Error(0)
}

type stubLock struct {
	held     bool
	unlocked int
}

func (l *stubLock) TryLock(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubLock) Unlock(context.Context) error {
	l.held = false
	l.unlocked++
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("job-%d", n)
	}
}

func source(url string, priority int) domain.SourceArticle {
	return domain.SourceArticle{
		SourceTitle: "title " + url,
		SourceURL:   url,
		Category:    "अपराध",
		Priority:    priority,
	}
}
