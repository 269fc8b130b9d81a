package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect validation run history",
	Long:  "Commands for listing, viewing, summarizing and pruning saved validation runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List validation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ticker, _ := cmd.Flags().GetString("ticker")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")

		filter := store.RunFilter{Ticker: ticker, Limit: limit}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the report of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s, %s)\n\n%s\n\nRoute: %s\n",
			run.ID, run.Ticker, run.CreatedAt.Format(time.RFC3339), run.Outcome.Report, run.Outcome.Route)
		return err
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show saved run counts per ticker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.CountByTicker(ctx)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatTickerStats(cmd.OutOrStdout(), counts)
		return nil
	},
}

// -- runs prune --

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the latest runs per ticker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		keep, _ := cmd.Flags().GetInt("keep")
		if keep == 0 {
			keep = cfg.Store.KeepLatest
		}
		if keep <= 0 {
			return eris.New("runs prune: --keep must be > 0")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tickers := []string{}
		if t, _ := cmd.Flags().GetString("ticker"); t != "" {
			tickers = append(tickers, t)
		} else {
			counts, err := st.CountByTicker(ctx)
			if err != nil {
				return eris.Wrap(err, "runs prune")
			}
			for t := range counts {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)
		}

		total := 0
		for _, t := range tickers {
			n, err := st.PruneTicker(ctx, t, keep)
			if err != nil {
				return eris.Wrapf(err, "runs prune %s", t)
			}
			total += n
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s), keeping the latest %d per ticker.\n", total, keep)
		return err
	},
}

// -- runs delete --

var runsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete runs for a ticker or older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ticker, _ := cmd.Flags().GetString("ticker")
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if (ticker == "") == (olderThan <= 0) {
			return eris.New("runs delete: set exactly one of --ticker or --older-than")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var n int
		if ticker != "" {
			n, err = st.DeleteTicker(ctx, ticker)
		} else {
			n, err = st.DeleteBefore(ctx, time.Now().Add(-olderThan))
		}
		if err != nil {
			return eris.Wrap(err, "runs delete")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s).\n", n)
		return err
	},
}

func init() {
	runsListCmd.Flags().String("ticker", "", "filter by ticker")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Duration("since", 0, "only runs newer than this (e.g. 24h, 168h)")

	runsShowCmd.Flags().Bool("json", false, "print the full run as JSON")

	runsPruneCmd.Flags().String("ticker", "", "prune one ticker (default all)")
	runsPruneCmd.Flags().Int("keep", 0, "runs to keep per ticker (default from config)")

	runsDeleteCmd.Flags().String("ticker", "", "delete every run for a ticker")
	runsDeleteCmd.Flags().Duration("older-than", 0, "delete runs older than this (e.g. 720h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsPruneCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTICKER\tSCORE\tCONFIDENCE\tCONFLICTS\tROUTE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t----------\t---------\t-----\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Ticker,
			r.Outcome.Result.CompletenessScore,
			r.Outcome.Result.Confidence,
			len(r.Outcome.Verification.Conflicts),
			r.Outcome.Route,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatTickerStats writes run counts per ticker to w, sorted by ticker.
func formatTickerStats(out io.Writer, counts map[string]int) {
	tickers := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		tickers = append(tickers, t)
		total += n
	}
	sort.Strings(tickers)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TICKER\tRUNS")
	for _, t := range tickers {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", t, counts[t])
	}
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", total)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
