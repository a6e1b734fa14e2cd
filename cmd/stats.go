package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// feedStats is the snapshot printed by the stats command
type feedStats struct {
	Total   int
	ByKind  map[internal.SourceKind]int
	LastDay int
	Newest  *internal.PersistedItem
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize what the feed holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now()
		stats, err := collectStats(cmd.Context(), store, now)
		if err != nil {
			return err
		}
		renderStats(cmd.OutOrStdout(), stats, cfg, now)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func collectStats(ctx context.Context, store *internal.ItemStore, now time.Time) (feedStats, error) {
	var s feedStats
	var err error
	if s.Total, err = store.Count(ctx, ""); err != nil {
		return s, err
	}
	if s.ByKind, err = store.CountByKind(ctx); err != nil {
		return s, err
	}
	if s.LastDay, err = store.CountSince(ctx, now.Add(-24*time.Hour), ""); err != nil {
		return s, err
	}
	newest, err := store.Recent(ctx, internal.FeedQuery{Limit: 1})
	if err != nil {
		return s, err
	}
	if len(newest) == 1 {
		s.Newest = newest[0]
	}
	return s, nil
}

func renderStats(w io.Writer, s feedStats, cfg internal.Config, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render("📊 Feed statistics"))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Total items\t%s\n", countStyle.Render(humanize.Comma(int64(s.Total))))
	_, _ = fmt.Fprintf(tw, "GitHub\t%s\n", humanize.Comma(int64(s.ByKind[internal.SourceCodeHost])))
	_, _ = fmt.Fprintf(tw, "Nostr\t%s\n", humanize.Comma(int64(s.ByKind[internal.SourceRelayNetwork])))
	_, _ = fmt.Fprintf(tw, "Last 24 hours\t%s\n", humanize.Comma(int64(s.LastDay)))
	if s.Newest != nil {
		_, _ = fmt.Fprintf(tw, "Newest item\t%s\n", humanize.RelTime(s.Newest.PublishedAt, now, "ago", "from now"))
	}
	_, _ = fmt.Fprintf(tw, "Retention\t%s\n", dateStyle.Render(fmt.Sprintf("%d days", int(cfg.Retention.Hours()/24))))
	_, _ = fmt.Fprintf(tw, "Database\t%s\n", idStyle.Render(cfg.Database))
	_ = tw.Flush()
}
