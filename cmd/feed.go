package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	feedSource string
	feedLimit  int
	feedDays   int
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	codeHostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	relayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"list"},
	Short:   "Show the latest activity",
	Long: `Show stored activity newest first, grouped by day.

Use --source to limit the feed to github or nostr items.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := internal.ParseSourceKind(feedSource)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		q := internal.FeedQuery{Kind: kind, Limit: feedLimit}
		if feedDays > 0 {
			q.Since = time.Now().Add(-time.Duration(feedDays) * 24 * time.Hour)
		}
		items, err := store.Recent(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("failed to load feed: %w", err)
		}

		renderFeed(cmd.OutOrStdout(), items, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().StringVarP(&feedSource, "source", "s", "", "Only show one source (github, nostr)")
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 20, "Maximum number of items (0 for all)")
	feedCmd.Flags().IntVar(&feedDays, "days", 0, "Only show items from the last N days")
}

func sourceLabel(kind internal.SourceKind) string {
	switch kind {
	case internal.SourceCodeHost:
		return codeHostStyle.Render("GitHub")
	case internal.SourceRelayNetwork:
		return relayStyle.Render("Nostr")
	default:
		return string(kind)
	}
}

func renderFeed(w io.Writer, items []*internal.PersistedItem, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, headerStyle.Render("📋 No activity yet"))
		fmt.Fprintln(w, idStyle.Render("💡 Tip: Run `sitrep run` to fetch recent activity"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 %s", internal.Pluralize(len(items), "item"))))

	var day string
	for _, item := range items {
		local := item.PublishedAt.Local()
		if d := local.Format("Monday, January 2"); d != day {
			day = d
			fmt.Fprintln(w)
			fmt.Fprintln(w, titleStyle.Render(day))
		}

		fmt.Fprintf(w, "  %s %s %s\n",
			dateStyle.Render(local.Format("15:04")),
			sourceLabel(item.SourceKind),
			item.Title,
		)
		if body := firstLine(item.Body); body != "" {
			fmt.Fprintf(w, "        %s\n", body)
		}
		fmt.Fprintf(w, "        %s %s\n",
			idStyle.Render(humanize.RelTime(item.PublishedAt, now, "ago", "from now")),
			dateStyle.Render(item.URL),
		)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}
