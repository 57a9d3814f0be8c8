package domain

import "time"

// JobStatus enumerates the states of a pipeline run.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FetchJob tracks a single pipeline run.
type FetchJob struct {
	JobID             string     `bson:"jobId" json:"jobId" db:"job_id"`
	Status            JobStatus  `bson:"status" json:"status" db:"status"`
	ArticlesProcessed int        `bson:"articlesProcessed" json:"articlesProcessed" db:"articles_processed"`
	StartTime         time.Time  `bson:"startTime" json:"startTime" db:"start_time"`
	EndTime           *time.Time `bson:"endTime,omitempty" json:"endTime,omitempty" db:"end_time"`
	Error             string     `bson:"error,omitempty" json:"error,omitempty" db:"error"`
}

// ChatRequest is a single-turn exchange with the chat service.
type ChatRequest struct {
	SessionID string
	System    string
	Prompt    string
}

// SearchQuery describes one call to the article-search service.
type SearchQuery struct {
	Query    string
	From     time.Time
	Language string
	SortBy   string
	PageSize int
}
