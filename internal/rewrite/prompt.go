package rewrite

import (
	"fmt"
	"strings"

	"NewsDesk/internal/domain"
)

const defaultLanguage = "Hindi"

func systemPrompt(language string) string {
	if strings.TrimSpace(language) == "" {
		language = defaultLanguage
	}
	return fmt.Sprintf(`You are a senior writer on a fast-paced %[1]s television news desk.
Your house style:
- bold, punchy, short sentences with immediate impact
- plain and direct wording
- facts first, never speculation
- dramatic in tone but strictly truthful
- pure %[1]s vocabulary

When you rewrite a story:
1. never copy phrases from the original; the facts stay, the words and structure are new
2. follow the house style above
3. write the output in %[1]s only
4. return only the news copy, no commentary`, language)
}

func userPrompt(source domain.SourceArticle) string {
	var b strings.Builder
	b.WriteString("Rewrite the following story in the house style.\n\n")
	fmt.Fprintf(&b, "Original Title: %s\n", source.SourceTitle)
	fmt.Fprintf(&b, "Description: %s\n", source.SourceDescription)
	fmt.Fprintf(&b, "Content: %s\n\n", source.SourceContent)
	fmt.Fprintf(&b, "Category: %s\n\n", source.Category)
	b.WriteString("Produce:\n")
	b.WriteString("1. a new, catchy headline (1 line)\n")
	b.WriteString("2. a short summary (2 lines)\n")
	b.WriteString("3. the full article (300-500 words)\n\n")
	b.WriteString("Format:\n")
	b.WriteString(headlineLabel + " [headline here]\n")
	b.WriteString(summaryLabel + " [summary here]\n")
	b.WriteString(contentLabel + " [full article here]")
	return b.String()
}

func sessionID(source domain.SourceArticle) string {
	key := source.SourceURL
	if key == "" {
		key = "default"
	}
	return "rewrite_" + key
}
