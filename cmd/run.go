package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const minRunInterval = time.Minute

var (
	runDays        int
	runInterval    time.Duration
	runMetricsAddr string
	runJSON        bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch recent activity into the feed",
	Long: `Fetch recent activity from GitHub and Nostr, store new items and prune
items older than the retention period.

By default a single ingestion runs and the command exits. With --interval the
ingestion repeats until interrupted. --metrics-addr exposes Prometheus metrics
while the command runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runInterval > 0 && runInterval < minRunInterval {
			return fmt.Errorf("--interval must be at least %s", minRunInterval)
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		pipeline := internal.NewPipelineFromConfig(store, cfg).WithMetrics(internal.NewMetrics(reg))

		if runMetricsAddr != "" {
			srv := internal.NewMetricsServer(runMetricsAddr, reg)
			go func() {
				if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					internal.LogError("Metrics server stopped: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			internal.LogInfo("Serving metrics on %s/metrics", runMetricsAddr)
		}

		out := cmd.OutOrStdout()
		runOnce := func() error {
			started := time.Now()
			summary, err := pipeline.Run(ctx, runDays)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}
			return printSummary(out, summary, time.Since(started))
		}

		if runInterval <= 0 {
			return runOnce()
		}

		if err := runOnce(); err != nil {
			internal.LogError("%v", err)
		}
		ticker := time.NewTicker(runInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				internal.LogInfo("Stopping: %v", context.Cause(ctx))
				return nil
			case <-ticker.C:
				if err := runOnce(); err != nil {
					internal.LogError("%v", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&runDays, "days", "d", 0, "Lookback window in days (default from config)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Repeat the ingestion at this interval until interrupted")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run summary as JSON")
}

func printSummary(w io.Writer, summary internal.RunSummary, took time.Duration) error {
	if runJSON {
		return json.NewEncoder(w).Encode(summary)
	}
	fmt.Fprintln(w, successStyle.Render("✅ Ingestion complete"))
	fmt.Fprintf(w, "   %s created, %s skipped, %s deleted %s\n",
		countStyle.Render(fmt.Sprint(summary.Created)),
		countStyle.Render(fmt.Sprint(summary.Skipped)),
		countStyle.Render(fmt.Sprint(summary.Deleted)),
		dateStyle.Render(fmt.Sprintf("(%s)", took.Round(time.Millisecond))),
	)
	return nil
}
