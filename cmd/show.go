package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var showJSON bool

var (
	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Width(12)

	metaKeyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62"))
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <external-id>",
	Short: "Show a single feed item",
	Long: `Show every stored field of one feed item, including its metadata.

Use 'sitrep feed' or 'sitrep export' to find external ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		externalID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		item, err := store.Get(cmd.Context(), externalID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item not found: %s", externalID)
		}

		if showJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		}
		displayItem(cmd.OutOrStdout(), item, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the item as JSON")
}

func displayItem(w io.Writer, item *internal.PersistedItem, now time.Time) {
	if item == nil {
		return
	}

	fmt.Fprintln(w, titleStyle.Render(item.Title))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Source"), sourceLabel(item.SourceKind))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("ID"), idStyle.Render(item.ExternalID))
	fmt.Fprintf(w, "%s %s %s\n",
		labelStyle.Render("Published"),
		item.PublishedAt.Local().Format("2006-01-02 15:04"),
		dateStyle.Render("("+humanize.RelTime(item.PublishedAt, now, "ago", "from now")+")"),
	)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("URL"), item.URL)

	if item.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, item.Body)
	}

	if len(item.Metadata) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Metadata"))
		keys := make([]string, 0, len(item.Metadata))
		width := 0
		for k := range item.Metadata {
			keys = append(keys, k)
			width = max(width, len(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s %v\n", metaKeyStyle.Render(fmt.Sprintf("%-*s", width, k)), item.Metadata[k])
		}
	}
}
