package rewrite

import (
	"errors"
	"regexp"
	"strings"
)

const (
	headlineLabel = "HEADLINE:"
	summaryLabel  = "SUMMARY:"
	contentLabel  = "CONTENT:"
)

// ErrUnparseableResponse is returned when neither parsing strategy yields all three sections.
var ErrUnparseableResponse = errors.New("unparseable rewrite response")

var blankLineExpr = regexp.MustCompile(`\n[ \t\r]*\n`)

// Sections is the structured form of a rewrite response.
type Sections struct {
	Headline string
	Summary  string
	Content  string
}

func (s Sections) complete() bool {
	return s.Headline != "" && s.Summary != "" && s.Content != ""
}

// ParseResponse extracts headline, summary and content from free text.
//
// Labeled lines start a section and any following non-empty unlabeled line is
// space-appended to the current section. If a section stays empty, the raw
// response is split into blank-line-delimited paragraphs instead: paragraph 0
// is the headline, 1 the summary and the rest the content.
func ParseResponse(response string) (Sections, error) {
	if labeled := parseLabeled(response); labeled.complete() {
		return labeled, nil
	}

	if positional, ok := parseParagraphs(response); ok {
		return positional, nil
	}

	return Sections{}, ErrUnparseableResponse
}

func parseLabeled(response string) Sections {
	var (
		parts   [3]strings.Builder
		current = -1
	)

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, headlineLabel):
			current = 0
			parts[current].Reset()
			parts[current].WriteString(strings.TrimSpace(strings.TrimPrefix(line, headlineLabel)))
		case strings.HasPrefix(line, summaryLabel):
			current = 1
			parts[current].Reset()
			parts[current].WriteString(strings.TrimSpace(strings.TrimPrefix(line, summaryLabel)))
		case strings.HasPrefix(line, contentLabel):
			current = 2
			parts[current].Reset()
			parts[current].WriteString(strings.TrimSpace(strings.TrimPrefix(line, contentLabel)))
		case line != "" && current >= 0:
			parts[current].WriteString(" ")
			parts[current].WriteString(line)
		}
	}

	return Sections{
		Headline: strings.TrimSpace(parts[0].String()),
		Summary:  strings.TrimSpace(parts[1].String()),
		Content:  strings.TrimSpace(parts[2].String()),
	}
}

func parseParagraphs(response string) (Sections, bool) {
	var paragraphs []string
	for _, p := range blankLineExpr.Split(response, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) < 3 {
		return Sections{}, false
	}

	return Sections{
		Headline: paragraphs[0],
		Summary:  paragraphs[1],
		Content:  strings.Join(paragraphs[2:], " "),
	}, true
}
