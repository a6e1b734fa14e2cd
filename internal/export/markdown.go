package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/11bdev/sitrep/internal"
)

const dayHeadingLayout = "Monday, January 2, 2006"

// MarkdownExporter exports the feed as a Markdown digest grouped by day
type MarkdownExporter struct {
	// Now anchors relative times; time.Now when nil
	Now func() time.Time
}

// Export exports items to Markdown format
func (e *MarkdownExporter) Export(items []*internal.PersistedItem, w io.Writer) error {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	// Header
	_, _ = fmt.Fprintf(w, "# Sitrep\n\n")
	_, _ = fmt.Fprintf(w, "**Items:** %d  \n", len(items))
	_, _ = fmt.Fprintf(w, "**Generated:** %s\n\n", now.UTC().Format(time.RFC3339))

	if len(items) == 0 {
		_, _ = fmt.Fprintf(w, "_No recent activity._\n")
		return nil
	}

	currentDay := ""
	for _, item := range items {
		day := item.PublishedAt.UTC().Format(dayHeadingLayout)
		if day != currentDay {
			_, _ = fmt.Fprintf(w, "---\n\n## %s\n\n", day)
			currentDay = day
		}

		_, _ = fmt.Fprintf(w, "### %s\n\n", escapeMarkdown(item.Title))
		_, _ = fmt.Fprintf(w, "*%s · %s* · [link](%s)\n\n",
			sourceLabel(item.SourceKind),
			humanize.RelTime(item.PublishedAt, now, "ago", "from now"),
			item.URL,
		)
		if item.Body != "" {
			_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(item.Body))
		}
	}

	return nil
}

func sourceLabel(kind internal.SourceKind) string {
	switch kind {
	case internal.SourceCodeHost:
		return "GitHub"
	case internal.SourceRelayNetwork:
		return "Nostr"
	default:
		return string(kind)
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			if strings.HasPrefix(line, "#") {
				line = "\\" + line
			}
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
