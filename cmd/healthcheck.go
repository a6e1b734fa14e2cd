package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	healthcheckRelays bool
)

var (
	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that sitrep is configured and can reach its sources",
	Long: `Check the health of sitrep by verifying:
  • The configuration loads and validates
  • The feed database is readable
  • The Nostr public key decodes
  • Each relay accepts a websocket connection (with --relays)

This command is useful for debugging a deployment before the first run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Sitrep Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid configuration:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if verbose {
			fmt.Fprintf(out, "   GitHub org: %s (%s)\n", cfg.CodeHost.Org, cfg.CodeHost.BaseURL)
			fmt.Fprintf(out, "   Relays: %d, hashtag %s\n", len(cfg.Relay.Relays), cfg.Relay.Hashtag)
			if cfg.CodeHost.Token == "" {
				fmt.Fprintln(out, "   No GitHub token set; unauthenticated rate limits apply")
			}
		}
		fmt.Fprintln(out)

		var problems int

		// Step 2: Database
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking feed database..."))
		if !checkDatabase(cmd.Context(), out, cfg.Database) {
			problems++
		}
		fmt.Fprintln(out)

		// Step 3: Identity
		fmt.Fprintln(out, infoStyle.Render("Step 3: Decoding Nostr public key..."))
		hexKey, err := internal.DecodeNPub(cfg.Relay.NPub)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Public key is invalid:"), err)
			problems++
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ Public key decoded"))
			if verbose {
				fmt.Fprintf(out, "   Hex: %s\n", hexKey)
			}
		}
		fmt.Fprintln(out)

		// Step 4: Relays
		if healthcheckRelays {
			fmt.Fprintln(out, infoStyle.Render("Step 4: Probing relays..."))
			reachable := 0
			for _, relayURL := range cfg.Relay.Relays {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Relay.Timeout)
				took, err := internal.ProbeRelay(ctx, relayURL, cfg.Relay.Origin)
				cancel()
				if err != nil {
					fmt.Fprintln(out, warningStyle.Render("⚠️  "+relayURL), err)
					continue
				}
				reachable++
				fmt.Fprintf(out, "%s %s\n", successStyle.Render("✅ "+relayURL), dateStyle.Render(took.Round(time.Millisecond).String()))
			}
			if reachable == 0 {
				fmt.Fprintln(out, errorStyle.Render("❌ No relay is reachable"))
				problems++
			}
			fmt.Fprintln(out)
		}

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if problems > 0 {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return fmt.Errorf("health check failed: %s", internal.Pluralize(problems, "problem"))
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckRelays, "relays", false, "Also open a connection to every configured relay")
}

// checkDatabase reports whether the feed database is usable. A database that
// has not been created yet is only a warning.
func checkDatabase(ctx context.Context, out io.Writer, path string) bool {
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Database not created yet"))
			fmt.Fprintf(out, "   Expected: %s\n", path)
			fmt.Fprintln(out, "   It is created on the first `sitrep run`")
			return true
		}
	}

	db, err := internal.OpenDatabaseReadOnly(path)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to open database:"), err)
		return false
	}
	defer db.Close()

	n, err := internal.NewItemStore(db).Count(ctx, "")
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to read database:"), err)
		return false
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Database readable (%s)", internal.Pluralize(n, "item"))))
	if verbose {
		fmt.Fprintf(out, "   Path: %s\n", path)
	}
	return true
}
