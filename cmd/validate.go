package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/collect"
	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/internal/store"
	"github.com/sells-group/equity-cli/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <ticker>",
	Short: "Score, fill and cross-check fundamentals for a ticker",
	Long: `Fetch fundamentals from Yahoo Finance (primary) and Alpha Vantage
(secondary), fill missing primary metrics, score completeness and flag values
the two sources disagree on. The report is saved to the run history.

Examples:
  # Live sources
  validate AAPL

  # Saved records instead of live sources
  validate AAPL --primary aapl_yahoo.json --secondary aapl_av.json

  # Resolve conflicts interactively before saving
  validate AAPL --interactive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		v, err := initValidator()
		if err != nil {
			return err
		}

		primaryFile, _ := cmd.Flags().GetString("primary")
		secondaryFile, _ := cmd.Flags().GetString("secondary")
		interactive, _ := cmd.Flags().GetBool("interactive")
		asJSON, _ := cmd.Flags().GetBool("json")
		noSave, _ := cmd.Flags().GetBool("no-save")

		var collector sourceCollector
		if primaryFile == "" {
			collector = initCollector()
		}
		ticker := store.NormalizeTicker(args[0])
		sources, err := loadSources(ctx, collector, ticker, primaryFile, secondaryFile)
		if err != nil {
			return err
		}

		var ask conflictPrompter
		if interactive {
			ask = surveyPrompter
		}
		out, err := reconcile(v, ticker, sources, ask)
		if err != nil {
			return err
		}

		if err := printOutcome(cmd.OutOrStdout(), out, asJSON); err != nil {
			return err
		}
		if noSave {
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run := &model.Run{Ticker: ticker, Outcome: out}
		if err := store.SaveWithRetention(ctx, st, run, cfg.Store.KeepLatest); err != nil {
			return eris.Wrap(err, "validate: save run")
		}
		zap.L().Info("validate: run saved", zap.String("run_id", run.ID), zap.String("ticker", ticker))
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.String("primary", "", "primary record JSON file instead of Yahoo Finance")
	f.String("secondary", "", "secondary record JSON file (used with --primary)")
	f.Bool("interactive", false, "resolve conflicts at the terminal")
	f.Bool("json", false, "print the outcome as JSON")
	f.Bool("no-save", false, "do not save the run")
	rootCmd.AddCommand(validateCmd)
}

// loadSources reads both records from files when primaryFile is set, and
// otherwise collects them live. Without a secondary file the secondary
// source is unavailable.
func loadSources(ctx context.Context, collector sourceCollector, ticker, primaryFile, secondaryFile string) (*collect.Sources, error) {
	if primaryFile == "" {
		if secondaryFile != "" {
			return nil, eris.New("validate: --secondary requires --primary")
		}
		if collector == nil {
			return nil, eris.New("validate: no collector configured")
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		return collector.Collect(ctx, ticker)
	}

	primary, err := readRecord(primaryFile)
	if err != nil {
		return nil, err
	}
	sources := &collect.Sources{Primary: primary}
	if secondaryFile == "" {
		sources.Secondary = model.Unavailable(collect.SecondaryName, eris.New("no secondary record supplied"))
		return sources, nil
	}
	secondary, err := readRecord(secondaryFile)
	if err != nil {
		return nil, err
	}
	sources.Secondary = model.NewSource(collect.SecondaryName, secondary)
	return sources, nil
}

func readRecord(path string) (model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Record{}, eris.Wrapf(err, "validate: read %s", path)
	}
	r, err := model.DecodeRecord(data)
	if err != nil {
		return model.Record{}, eris.Wrapf(err, "validate: decode %s", path)
	}
	return r, nil
}

// reconcile validates the sources and, when ask is set and the outcome needs
// review, applies the reviewer's resolutions.
func reconcile(v *validation.Validator, ticker string, sources *collect.Sources, ask conflictPrompter) (model.Outcome, error) {
	out := v.Validate(ticker, sources.Primary, sources.Secondary)
	if ask == nil || len(out.Verification.Conflicts) == 0 {
		return out, nil
	}

	resolutions, err := promptResolutions(v.Vocabulary(), out.Verification.Conflicts, ask)
	if err != nil {
		return out, err
	}
	return v.Resolve(out, resolutions)
}

func printOutcome(w io.Writer, out model.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintf(w, "%s\n\nRoute: %s\n", out.Report, out.Route)
	return err
}
