//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Ticker: "AAPL",
			Outcome: model.Outcome{
				Result:       model.ValidationResult{CompletenessScore: 42, Confidence: model.ConfidenceLow},
				Verification: model.Verification{Conflicts: []model.ConflictRecord{{Key: model.KeyDebtToEquity}}},
				Route:        model.RouteHumanReview,
			},
			CreatedAt: now,
		},
		{
			ID:     "def12345-6789-0000-0000-000000000000",
			Ticker: "MSFT",
			Outcome: model.Outcome{
				Result: model.ValidationResult{CompletenessScore: 100, Confidence: model.ConfidenceHigh},
				Route:  model.RouteAnalysis,
			},
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "TICKER")
	assert.Contains(t, output, "CONFIDENCE")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "AAPL")
	assert.Contains(t, output, "42%")
	assert.Contains(t, output, "human_review")
	assert.Contains(t, output, "MSFT")
	assert.Contains(t, output, "100%")
	assert.Contains(t, output, "2026-06-15 10:30")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	assert.Len(t, lines, 4)
}

func TestFormatTickerStats(t *testing.T) {
	var buf bytes.Buffer
	formatTickerStats(&buf, map[string]int{"MSFT": 2, "AAPL": 3})

	output := buf.String()
	assert.Less(t, strings.Index(output, "AAPL"), strings.Index(output, "MSFT"))
	assert.Regexp(t, `Total:\s+5`, output)
}

func TestFormatTickerStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatTickerStats(&buf, map[string]int{})
	assert.Regexp(t, `Total:\s+0`, buf.String())
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats", "prune", "delete"} {
		assert.True(t, names[name], "expected runs subcommand %q", name)
	}
}
