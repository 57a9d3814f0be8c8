package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const maxPageSize = 100

// Client implements ports.ArticleSearcher against the NewsAPI "everything" endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.ArticleSearcher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.NewsAPIConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type everythingResponse struct {
	Status   string            `json:"status"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Articles []json.RawMessage `json:"articles"`
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Search runs one query. Records that fail to decode are skipped with a warning.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawArticle, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return nil, fmt.Errorf("newsapi client misconfigured")
	}

	reqURL, err := c.buildURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", "NewsDesk/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload everythingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("newsapi returned %s", resp.Status)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || payload.Status == "error" {
		return nil, fmt.Errorf("newsapi returned %s: %s %s", resp.Status, payload.Code, strings.TrimSpace(payload.Message))
	}

	articles := make([]domain.RawArticle, 0, len(payload.Articles))
	for i, raw := range payload.Articles {
		var item apiArticle
		if err := json.Unmarshal(raw, &item); err != nil {
			c.warn("skip malformed search record", "query", query.Query, "index", i, "error", err)
			continue
		}
		articles = append(articles, domain.RawArticle{
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
			Content:     item.Content,
			ImageURL:    item.URLToImage,
			PublishedAt: item.PublishedAt,
			SourceName:  item.Source.Name,
		})
	}

	return articles, nil
}

func (c *Client) buildURL(query domain.SearchQuery) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid newsapi endpoint %s: %w", c.endpoint, err)
	}

	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	values := parsed.Query()
	values.Set("q", query.Query)
	if !query.From.IsZero() {
		values.Set("from", query.From.Format("2006-01-02"))
	}
	if query.Language != "" {
		values.Set("language", query.Language)
	}
	if query.SortBy != "" {
		values.Set("sortBy", query.SortBy)
	}
	values.Set("pageSize", strconv.Itoa(pageSize))
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
