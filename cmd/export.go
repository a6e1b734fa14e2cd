package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/11bdev/sitrep/internal/export"
	"github.com/spf13/cobra"
)

var (
	format       string
	outputPath   string
	exportSource string
	exportLimit  int
	exportDays   int
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the feed to a file",
	Long: `Export stored feed items to various formats (jsonl, md, yaml, json).

Items are written newest first. Without --output the export goes to stdout.
When --output names a directory, the file is called sitrep-<date>.<ext>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}
		kind, err := internal.ParseSourceKind(exportSource)
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

		q := internal.FeedQuery{Kind: kind, Limit: exportLimit}
		if exportDays > 0 {
			q.Since = time.Now().Add(-time.Duration(exportDays) * 24 * time.Hour)
		}
		items, err := store.Recent(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("failed to load feed: %w", err)
		}

		if outputPath == "" {
			return exporter.Export(items, cmd.OutOrStdout())
		}

		path, err := exportFilePath(outputPath, exporter.Extension(), time.Now())
		if err != nil {
			return err
		}
		if err := writeExport(path, exporter, items); err != nil {
			return err
		}
		internal.LogInfo("Exported %d item(s) to %s", len(items), path)
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✅ Exported %s to %s", internal.Pluralize(len(items), "item"), path)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory (default stdout)")
	exportCmd.Flags().StringVarP(&exportSource, "source", "s", "", "Only export one source (github, nostr)")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 0, "Maximum number of items (0 for all)")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Only export items from the last N days")
}

// exportFilePath resolves a directory target to a dated file inside it
func exportFilePath(target, ext string, now time.Time) (string, error) {
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		return filepath.Join(target, fmt.Sprintf("sitrep-%s.%s", now.Format("2006-01-02"), ext)), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat output path: %w", err)
	}
	return target, nil
}

func writeExport(path string, exporter export.Exporter, items []*internal.PersistedItem) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := exporter.Export(items, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export: %w", err)
	}
	return f.Close()
}
