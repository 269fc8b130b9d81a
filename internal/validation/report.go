package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/model"
)

// FormatValidationReport renders a data quality report for one ticker.
func FormatValidationReport(ticker string, res model.ValidationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Data Quality Report for %s\n\n", ticker)
	fmt.Fprintf(&b, "**Completeness Score:** %d%% | **Confidence Level:** %s\n\n", res.CompletenessScore, res.Confidence)

	title := cases.Title(language.English)
	for _, tc := range res.Tiers {
		fmt.Fprintf(&b, "- %s Metrics: %d/%d available\n", title.String(tc.Tier), len(tc.Available), tc.Total)
	}
	b.WriteString("\n")

	if len(res.Warnings) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if missing := res.MissingCritical(); len(missing) > 0 {
		b.WriteString("### Missing Critical Metrics\n\n")
		for _, key := range missing {
			fmt.Fprintf(&b, "- `%s`\n", key)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatFillSummary lists the metrics filled from source. It returns an
// empty string when nothing was filled.
func FormatFillSummary(vocab *metrics.Vocabulary, source string, filled []model.FilledMetric) string {
	if len(filled) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### Data Enrichment from %s\n\n", source)
	fmt.Fprintf(&b, "Filled %d missing metric(s):\n\n", len(filled))
	for _, f := range filled {
		fmt.Fprintf(&b, "- **%s** (`%s`): %s\n", vocab.Label(f.Key), f.Key, FormatValue(f.Value))
	}
	return b.String()
}

// FormatVerificationReport renders the cross-source comparison. reason is
// included when verification was skipped because the source failed. A
// source that answered with no data is reported without an error line.
func FormatVerificationReport(vocab *metrics.Vocabulary, ver model.Verification, reason string) string {
	var b strings.Builder

	if ver.Skipped {
		b.WriteString("### Verification Skipped\n\n")
		if ver.SourceStatus == model.SourceEmpty {
			fmt.Fprintf(&b, "%s returned no data; nothing to verify.\n", ver.Source)
			return b.String()
		}
		fmt.Fprintf(&b, "Could not fetch data from %s for verification.\n", ver.Source)
		if reason != "" {
			fmt.Fprintf(&b, "Error: %s\n", reason)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "### Cross-Source Verification (%s)\n\n", ver.Source)
	if len(ver.Comparisons) == 0 {
		b.WriteString("No overlapping metrics to compare.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "| Metric | Primary | %s | Difference | Status |\n", ver.Source)
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range ver.Comparisons {
		status := "OK"
		if c.Conflict {
			status = fmt.Sprintf("CONFLICT (%s)", c.Severity)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f%% | %s |\n",
			vocab.Label(c.Key), FormatNumber(c.Primary), FormatNumber(c.Secondary), c.RelativeDiff*100, status)
	}
	b.WriteString("\n")

	if n := len(ver.Conflicts); n > 0 {
		fmt.Fprintf(&b, "Found %d conflict(s) beyond tolerance. Review before analysis.\n", n)
	} else {
		fmt.Fprintf(&b, "All %d compared metric(s) agree within tolerance.\n", len(ver.Comparisons))
	}
	return b.String()
}

// FormatNumber renders large magnitudes with digit grouping and small ones
// with up to four decimals.
func FormatNumber(f float64) string {
	if math.Abs(f) >= math.MaxInt64/2 {
		return strconv.FormatFloat(f, 'e', 3, 64)
	}
	if math.Abs(f) >= 1000 {
		return message.NewPrinter(language.English).Sprintf("%d", int64(math.Round(f)))
	}
	return strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)
}

// FormatValue renders a metric value for reports.
func FormatValue(v model.Value) string {
	if f, ok := v.Float(); ok {
		return FormatNumber(f)
	}
	return v.String()
}

func formatResolutions(vocab *metrics.Vocabulary, resolutions []Resolution) string {
	var b strings.Builder
	b.WriteString("### Reviewer Resolutions\n\n")
	for _, r := range resolutions {
		switch {
		case r.Choice == ChoiceManual && r.Value != nil:
			fmt.Fprintf(&b, "- %s: manual value %s\n", vocab.Label(r.Key), FormatNumber(*r.Value))
		default:
			fmt.Fprintf(&b, "- %s: %s\n", vocab.Label(r.Key), r.Choice)
		}
	}
	return b.String()
}
