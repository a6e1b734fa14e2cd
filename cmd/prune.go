package cmd

import (
	"fmt"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete items older than the retention period",
	Long: `Delete every item published before the retention cutoff.

'sitrep run' already prunes after each ingestion; this command is for
shrinking the feed without fetching.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		olderThan := cfg.Retention
		if pruneOlderThan > 0 {
			olderThan = pruneOlderThan
		}

		store, db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := store.Prune(cmd.Context(), olderThan)
		if err != nil {
			return err
		}
		internal.LogInfo("Pruned %d item(s) older than %s", deleted, olderThan)
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✅ Deleted %s", internal.Pluralize(deleted, "item"))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Delete items older than this (default from config retention)")
}
