package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/logging"
	"NewsDesk/internal/ports"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindBySourceURL(ctx context.Context, url string) (*domain.Article, error) {
	args := m.Called(ctx, url)
	a, _ := args.Get(0).(*domain.Article)
	return a, args.Error(1)
}

func (m *mockStore) NextArticleID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) InsertArticle(ctx context.Context, a domain.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Article)
	return a, args.Error(1)
}

func (m *mockStore) ListArticles(ctx context.Context, q ports.ArticleQuery) ([]domain.Article, int64, error) {
	args := m.Called(ctx, q)
	a, _ := args.Get(0).([]domain.Article)
	return a, args.Get(1).(int64), args.Error(2)
}

func (m *mockStore) ListBreaking(ctx context.Context, limit int64) ([]domain.Article, error) {
	args := m.Called(ctx, limit)
	a, _ := args.Get(0).([]domain.Article)
	return a, args.Error(1)
}

func (m *mockStore) IncrementViews(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) InsertJob(ctx context.Context, job domain.FetchJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockStore) UpdateJob(ctx context.Context, job domain.FetchJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockStore) FindRunningJob(ctx context.Context) (*domain.FetchJob, error) {
	args := m.Called(ctx)
	j, _ := args.Get(0).(*domain.FetchJob)
	return j, args.Error(1)
}

func (m *mockStore) LatestJob(ctx context.Context) (*domain.FetchJob, error) {
	args := m.Called(ctx)
	j, _ := args.Get(0).(*domain.FetchJob)
	return j, args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  string          `json:"detail"`
	Views   int64           `json:"views"`
}

func serve(t *testing.T, store *mockStore, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	h := NewHandler(store, store, func() bool { return true }, logging.Discard())
	router := NewRouter(h, prometheus.NewRegistry(), logging.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestListArticlesPaginates(t *testing.T) {
	store := &mockStore{}
	store.On("ListArticles", mock.Anything, ports.ArticleQuery{Category: "खेल", Skip: 10, Limit: 5}).
		Return([]domain.Article{{ArticleID: 3, Title: "t"}}, int64(12), nil)

	rec, body := serve(t, store, http.MethodGet, "/api/news/all?page=3&limit=5&category=%E0%A4%96%E0%A5%87%E0%A4%B2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	var data pageData
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, int64(12), data.Total)
	assert.Equal(t, int64(3), data.Page)
	assert.Equal(t, int64(3), data.Pages)
	require.Len(t, data.Articles, 1)
	assert.Equal(t, int64(3), data.Articles[0].ArticleID)
	store.AssertExpectations(t)
}

func TestListArticlesByCategoryPath(t *testing.T) {
	store := &mockStore{}
	store.On("ListArticles", mock.Anything, ports.ArticleQuery{Category: "sports", Skip: 0, Limit: 20}).
		Return([]domain.Article{}, int64(0), nil)

	rec, _ := serve(t, store, http.MethodGet, "/api/news/category/sports")
	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestListArticlesRejectsBadPaging(t *testing.T) {
	for _, target := range []string{
		"/api/news/all?page=0",
		"/api/news/all?page=92233720368547759",
		"/api/news/all?limit=101",
		"/api/news/all?limit=x",
	} {
		rec, body := serve(t, &mockStore{}, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.False(t, body.Success)
	}
}

func TestListArticlesLastPageSkipStaysPositive(t *testing.T) {
	store := &mockStore{}
	store.On("ListArticles", mock.Anything, ports.ArticleQuery{Skip: 9223372036854775700, Limit: 100}).
		Return([]domain.Article{}, int64(0), nil).Once()

	rec, _ := serve(t, store, http.MethodGet, "/api/news/all?page=92233720368547758&limit=100")
	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestBreakingPadsWithLatest(t *testing.T) {
	store := &mockStore{}
	store.On("ListBreaking", mock.Anything, int64(10)).
		Return([]domain.Article{{Title: "b1"}, {Title: "b2"}}, nil)
	store.On("ListArticles", mock.Anything, ports.ArticleQuery{Limit: 8}).
		Return([]domain.Article{{Title: "l1"}}, int64(1), nil)

	rec, body := serve(t, store, http.MethodGet, "/api/news/breaking")
	require.Equal(t, http.StatusOK, rec.Code)

	var ticker []string
	require.NoError(t, json.Unmarshal(body.Data, &ticker))
	assert.Equal(t, []string{"b1", "b2", "l1"}, ticker)
}

func TestBreakingSkipsPaddingWhenEnough(t *testing.T) {
	store := &mockStore{}
	breaking := make([]domain.Article, 6)
	for i := range breaking {
		breaking[i] = domain.Article{Title: "b"}
	}
	store.On("ListBreaking", mock.Anything, int64(10)).Return(breaking, nil)

	rec, body := serve(t, store, http.MethodGet, "/api/news/breaking")
	require.Equal(t, http.StatusOK, rec.Code)

	var ticker []string
	require.NoError(t, json.Unmarshal(body.Data, &ticker))
	assert.Len(t, ticker, 6)
	store.AssertNotCalled(t, "ListArticles", mock.Anything, mock.Anything)
}

func TestGetArticle(t *testing.T) {
	store := &mockStore{}
	store.On("GetArticle", mock.Anything, int64(7)).
		Return(&domain.Article{ArticleID: 7, Content: "पूरा लेख", SourceURL: "https://news.example/7"}, nil)
	store.On("GetArticle", mock.Anything, int64(8)).Return(nil, ports.ErrNotFound)
	store.On("GetArticle", mock.Anything, int64(9)).Return(nil, errors.New("db down"))

	rec, body := serve(t, store, http.MethodGet, "/api/news/7")
	require.Equal(t, http.StatusOK, rec.Code)
	var article domain.Article
	require.NoError(t, json.Unmarshal(body.Data, &article))
	assert.Equal(t, "पूरा लेख", article.Content)
	assert.Equal(t, "https://news.example/7", article.SourceURL)

	rec, body = serve(t, store, http.MethodGet, "/api/news/8")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "article not found", body.Detail)

	rec, _ = serve(t, store, http.MethodGet, "/api/news/9")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = serve(t, store, http.MethodGet, "/api/news/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncrementView(t *testing.T) {
	store := &mockStore{}
	store.On("IncrementViews", mock.Anything, int64(7)).Return(int64(11), nil)
	store.On("IncrementViews", mock.Anything, int64(8)).Return(int64(0), ports.ErrNotFound)

	rec, body := serve(t, store, http.MethodPost, "/api/news/increment-view/7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, int64(11), body.Views)

	rec, _ = serve(t, store, http.MethodPost, "/api/news/increment-view/8")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestJobAndHealth(t *testing.T) {
	store := &mockStore{}
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.On("LatestJob", mock.Anything).
		Return(&domain.FetchJob{JobID: "j1", Status: domain.JobRunning, StartTime: start}, nil)

	rec, body := serve(t, store, http.MethodGet, "/api/jobs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var job domain.FetchJob
	require.NoError(t, json.Unmarshal(body.Data, &job))
	assert.Equal(t, "j1", job.JobID)
	assert.Equal(t, domain.JobRunning, job.Status)

	rec, _ = serve(t, store, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","pipelineRunning":true}`, rec.Body.String())

	rec, _ = serve(t, store, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
