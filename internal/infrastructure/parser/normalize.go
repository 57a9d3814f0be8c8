package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDesk/internal/domain"
)

// NewsAPI cuts content at ~200 chars and appends "[+1234 chars]".
var truncationExpr = regexp.MustCompile(`\s*(…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// normalizeArticle maps a raw search hit into the common source shape.
// It reports false when the record carries neither a title nor a URL.
func normalizeArticle(raw domain.RawArticle, category string, priority int) (domain.SourceArticle, bool) {
	title := cleanText(raw.Title)
	url := strings.TrimSpace(raw.URL)
	if title == "" && url == "" {
		return domain.SourceArticle{}, false
	}

	return domain.SourceArticle{
		SourceTitle:       title,
		SourceURL:         url,
		SourceDescription: cleanText(raw.Description),
		SourceContent:     truncationExpr.ReplaceAllString(cleanText(raw.Content), ""),
		SourceImage:       strings.TrimSpace(raw.ImageURL),
		SourcePublishedAt: parsePublished(raw.PublishedAt),
		Category:          category,
		Priority:          priority,
		Publisher:         strings.TrimSpace(raw.SourceName),
	}, true
}

// cleanText strips HTML markup and collapses whitespace.
func cleanText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if strings.ContainsAny(value, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
		if err == nil {
			value = doc.Text()
		}
	}

	return strings.Join(strings.Fields(value), " ")
}

func parsePublished(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
