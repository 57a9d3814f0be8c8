package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const (
	articlesCollection = "articles"
	jobsCollection     = "fetch_jobs"
	countersCollection = "counters"

	articleCounterID = "articleId"
)

// MongoStore persists articles and jobs in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	articles *mongo.Collection
	jobs     *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

var _ ports.Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and uses database name.
func NewMongoStore(ctx context.Context, uri, name string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := NewMongoStoreFromDatabase(client.Database(name))
	store.client = client
	return store, nil
}

// NewMongoStoreFromDatabase wraps an already connected database handle.
func NewMongoStoreFromDatabase(db *mongo.Database) *MongoStore {
	return &MongoStore{
		articles: db.Collection(articlesCollection),
		jobs:     db.Collection(jobsCollection),
		counters: db.Collection(countersCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the lookup and uniqueness indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "articleId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "sourceUrl", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"sourceUrl": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "isBreaking", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("article indexes: %w", err)
	}

	_, err = s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startTime", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("job indexes: %w", err)
	}
	return nil
}

// FindBySourceURL returns ports.ErrNotFound when no article carries sourceURL.
func (s *MongoStore) FindBySourceURL(ctx context.Context, sourceURL string) (*domain.Article, error) {
	return s.findArticle(ctx, bson.M{"sourceUrl": sourceURL})
}

// GetArticle looks an article up by its numeric id.
func (s *MongoStore) GetArticle(ctx context.Context, articleID int64) (*domain.Article, error) {
	return s.findArticle(ctx, bson.M{"articleId": articleID})
}

func (s *MongoStore) findArticle(ctx context.Context, filter bson.M) (*domain.Article, error) {
	var article domain.Article
	err := s.articles.FindOne(ctx, filter).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	return &article, nil
}

// NextArticleID hands out max(articleId)+1 through an atomic counter. The
// counter is raised to the current maximum first so that articles written
// outside the counter are never reused.
func (s *MongoStore) NextArticleID(ctx context.Context) (int64, error) {
	var current int64
	var top struct {
		ArticleID int64 `bson:"articleId"`
	}
	err := s.articles.FindOne(ctx, bson.M{},
		options.FindOne().
			SetSort(bson.D{{Key: "articleId", Value: -1}}).
			SetProjection(bson.M{"articleId": 1}),
	).Decode(&top)
	switch {
	case err == nil:
		current = top.ArticleID
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return 0, fmt.Errorf("read max article id: %w", err)
	}

	_, err = s.counters.UpdateOne(ctx,
		bson.M{"_id": articleCounterID},
		bson.M{"$max": bson.M{"seq": current}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return 0, fmt.Errorf("seed article counter: %w", err)
	}

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err = s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": articleCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("increment article counter: %w", err)
	}
	return counter.Seq, nil
}

// InsertArticle stores a new article; a sourceUrl collision yields ports.ErrDuplicateArticle.
func (s *MongoStore) InsertArticle(ctx context.Context, article domain.Article) error {
	if _, err := s.articles.InsertOne(ctx, article); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ports.ErrDuplicateArticle, article.SourceURL)
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ListArticles returns one page, newest first, and the total matching count.
func (s *MongoStore) ListArticles(ctx context.Context, query ports.ArticleQuery) ([]domain.Article, int64, error) {
	filter := bson.M{}
	if query.Category != "" {
		filter["category"] = query.Category
	}

	total, err := s.articles.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetSkip(query.Skip).
		SetProjection(bson.M{"_id": 0, "content": 0})
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}

	articles, err := s.findArticles(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ListBreaking returns the newest breaking articles.
func (s *MongoStore) ListBreaking(ctx context.Context, limit int64) ([]domain.Article, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetProjection(bson.M{"_id": 0, "content": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.findArticles(ctx, bson.M{"isBreaking": true}, opts)
}

func (s *MongoStore) findArticles(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Article, error) {
	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}

	articles := make([]domain.Article, 0)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return articles, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *MongoStore) IncrementViews(ctx context.Context, articleID int64) (int64, error) {
	var updated struct {
		Views int64 `bson:"views"`
	}
	err := s.articles.FindOneAndUpdate(ctx,
		bson.M{"articleId": articleID},
		bson.M{
			"$inc": bson.M{"views": 1},
			"$set": bson.M{"updatedAt": s.now()},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"views": 1}),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ports.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return updated.Views, nil
}

// InsertJob records a new run.
func (s *MongoStore) InsertJob(ctx context.Context, job domain.FetchJob) error {
	if _, err := s.jobs.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob writes the mutable fields of a run.
func (s *MongoStore) UpdateJob(ctx context.Context, job domain.FetchJob) error {
	set := bson.M{
		"status":            job.Status,
		"articlesProcessed": job.ArticlesProcessed,
	}
	if job.EndTime != nil {
		set["endTime"] = *job.EndTime
	}
	if job.Error != "" {
		set["error"] = job.Error
	}

	res, err := s.jobs.UpdateOne(ctx, bson.M{"jobId": job.JobID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update job %s: %w", job.JobID, ports.ErrNotFound)
	}
	return nil
}

// FindRunningJob returns the newest job still marked running.
func (s *MongoStore) FindRunningJob(ctx context.Context) (*domain.FetchJob, error) {
	return s.findJob(ctx, bson.M{"status": domain.JobRunning})
}

// LatestJob returns the most recently started job.
func (s *MongoStore) LatestJob(ctx context.Context) (*domain.FetchJob, error) {
	return s.findJob(ctx, bson.M{})
}

func (s *MongoStore) findJob(ctx context.Context, filter bson.M) (*domain.FetchJob, error) {
	var job domain.FetchJob
	err := s.jobs.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}}),
	).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &job, nil
}

// Close disconnects the client when the store owns it.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
