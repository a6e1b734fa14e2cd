package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/11bdev/sitrep/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	dbPath     string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitrep",
	Short: "Aggregate team activity from GitHub and Nostr into one feed",
	Long: `sitrep collects recent activity from a GitHub organization and from a
Nostr identity, normalizes it into a single feed and keeps it in a local
SQLite database.

Features:
  • Summarize pushes, pull requests, issues and new branches per repository
  • Collect hashtag-tagged notes from several Nostr relays at once
  • Idempotent ingestion: re-running never duplicates items
  • Automatic 30-day retention
  • Export the feed as JSONL, Markdown, YAML or JSON

Quick Start:
  sitrep run                       # Fetch the last 7 days once
  sitrep run --interval 15m        # Keep the feed fresh
  sitrep feed                      # Show the latest items
  sitrep export --format md        # Write the feed as Markdown

Configuration is read from --config (YAML) and SITREP_* environment variables.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (default ~/.sitrep/sitrep.db)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the config file and environment, then applies flag overrides
func loadConfig() (internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return internal.Config{}, err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if !verbose {
		level, _ := internal.ParseLogLevel(cfg.LogLevel)
		internal.SetLogLevel(level)
	}
	return cfg, nil
}

// openStore opens the configured database, creating it on first use
func openStore(cfg internal.Config) (*internal.ItemStore, *sql.DB, error) {
	db, err := internal.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return internal.NewItemStore(db), db, nil
}
