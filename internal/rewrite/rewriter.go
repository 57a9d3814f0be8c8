package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// Options configures a StyleRewriter.
type Options struct {
	// LocalCategory is the only category that gets district tagging.
	LocalCategory    string
	OutputLanguage   string
	PlaceholderImage string
	Districts        *DistrictTagger
	Logger           *slog.Logger
}

// StyleRewriter implements ports.Rewriter on top of a chat service.
type StyleRewriter struct {
	chat             ports.ChatClient
	system           string
	localCategory    string
	placeholderImage string
	districts        *DistrictTagger
	logger           *slog.Logger
}

var _ ports.Rewriter = (*StyleRewriter)(nil)

// NewStyleRewriter constructs a rewriter.
func NewStyleRewriter(chat ports.ChatClient, opts Options) *StyleRewriter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StyleRewriter{
		chat:             chat,
		system:           systemPrompt(opts.OutputLanguage),
		localCategory:    opts.LocalCategory,
		placeholderImage: opts.PlaceholderImage,
		districts:        opts.Districts,
		logger:           logger.With("component", "rewriter"),
	}
}

// Rewrite asks the chat service for a house-style version of source. Any
// failure is logged and returned; callers drop the article.
func (r *StyleRewriter) Rewrite(ctx context.Context, source domain.SourceArticle) (*domain.RewrittenArticle, error) {
	if r.chat == nil {
		return nil, fmt.Errorf("rewriter has no chat client")
	}

	response, err := r.chat.Complete(ctx, domain.ChatRequest{
		SessionID: sessionID(source),
		System:    r.system,
		Prompt:    userPrompt(source),
	})
	if err != nil {
		r.logger.Warn("chat completion failed", "source_url", source.SourceURL, "error", err)
		return nil, fmt.Errorf("rewrite %q: %w", source.SourceURL, err)
	}

	sections, err := ParseResponse(response)
	if err != nil {
		r.logger.Warn("rewrite response rejected", "source_url", source.SourceURL, "error", err)
		return nil, fmt.Errorf("rewrite %q: %w", source.SourceURL, err)
	}

	var district *string
	if r.localCategory != "" && source.Category == r.localCategory {
		district = r.districts.Detect(sections.Headline, sections.Summary)
	}

	image := strings.TrimSpace(source.SourceImage)
	if image == "" {
		image = r.placeholderImage
	}

	return &domain.RewrittenArticle{
		Title:             sections.Headline,
		Summary:           sections.Summary,
		Content:           sections.Content,
		Category:          source.Category,
		District:          district,
		Image:             image,
		SourceTitle:       source.SourceTitle,
		SourceURL:         source.SourceURL,
		SourcePublishedAt: source.SourcePublishedAt,
		Priority:          source.Priority,
	}, nil
}
