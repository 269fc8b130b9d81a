package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/equity-cli/internal/validation"
)

var scoreCmd = &cobra.Command{
	Use:   "score <record.json>",
	Short: "Score the completeness of a metric record",
	Long: `Score a JSON object of metric values against the critical, important
and optional tiers and print the completeness report.

Examples:
  # Score a saved Yahoo record
  score aapl.json

  # Read from stdin and print the raw result
  cat aapl.json | score - --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := initValidator()
		if err != nil {
			return err
		}

		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return eris.Wrap(err, "score: read record")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		res := v.ScoreJSON(data)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		ticker, _ := cmd.Flags().GetString("ticker")
		if ticker == "" {
			ticker = recordTicker(data)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), validation.FormatValidationReport(ticker, res))
		return err
	},
}

func init() {
	scoreCmd.Flags().String("ticker", "", "ticker shown in the report heading")
	scoreCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(scoreCmd)
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// recordTicker picks a display ticker from a record's symbol field.
func recordTicker(data []byte) string {
	var ids struct {
		Symbol string `json:"symbol"`
		Ticker string `json:"ticker"`
	}
	_ = json.Unmarshal(data, &ids)
	switch {
	case ids.Ticker != "":
		return ids.Ticker
	case ids.Symbol != "":
		return ids.Symbol
	default:
		return "record"
	}
}
