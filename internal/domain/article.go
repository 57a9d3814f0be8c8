package domain

import "time"

// BreakingPriority is the lowest priority that marks an article as breaking news.
const BreakingPriority = 9

// RawArticle is a single search hit as returned by the news search service.
// Missing or null fields decode to empty strings.
type RawArticle struct {
	Title       string
	URL         string
	Description string
	Content     string
	ImageURL    string
	PublishedAt string
	SourceName  string
}

// SourceArticle is a normalized search hit waiting to be rewritten.
type SourceArticle struct {
	SourceTitle       string
	SourceURL         string
	SourceDescription string
	SourceContent     string
	SourceImage       string
	SourcePublishedAt *time.Time
	Category          string
	Priority          int
	Publisher         string
}

// CategoryBatch holds the fetch results of one category, keeping fetch order.
type CategoryBatch struct {
	Category string
	Slug     string
	Articles []SourceArticle
}

// RewrittenArticle is the LLM output merged with source provenance.
type RewrittenArticle struct {
	Title             string
	Summary           string
	Content           string
	Category          string
	District          *string
	Image             string
	SourceTitle       string
	SourceURL         string
	SourcePublishedAt *time.Time
	Priority          int
}

// Article is the persisted, published news item.
type Article struct {
	ArticleID         int64      `bson:"articleId" json:"id" db:"article_id"`
	Title             string     `bson:"title" json:"title" db:"title"`
	Summary           string     `bson:"summary" json:"summary" db:"summary"`
	Content           string     `bson:"content" json:"content,omitempty" db:"content"`
	Category          string     `bson:"category" json:"category" db:"category"`
	District          *string    `bson:"district" json:"district" db:"district"`
	Image             string     `bson:"image" json:"image" db:"image"`
	Date              time.Time  `bson:"date" json:"date" db:"date"`
	Author            string     `bson:"author" json:"author" db:"author"`
	Views             int64      `bson:"views" json:"views" db:"views"`
	SourceTitle       string     `bson:"sourceTitle" json:"sourceTitle,omitempty" db:"source_title"`
	SourceURL         string     `bson:"sourceUrl" json:"sourceUrl,omitempty" db:"source_url"`
	SourcePublishedAt *time.Time `bson:"sourcePublishedAt" json:"sourcePublishedAt,omitempty" db:"source_published_at"`
	IsBreaking        bool       `bson:"isBreaking" json:"isBreaking" db:"is_breaking"`
	Priority          int        `bson:"priority" json:"priority" db:"priority"`
	AIGenerated       bool       `bson:"aiGenerated" json:"aiGenerated" db:"ai_generated"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt" db:"updated_at"`
}

// IsBreakingPriority reports whether the priority qualifies as breaking news.
func IsBreakingPriority(priority int) bool {
	return priority >= BreakingPriority
}
