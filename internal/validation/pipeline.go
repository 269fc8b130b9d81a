package validation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/model"
)

// NoDataReport is the report for a ticker with no primary data.
const NoDataReport = "No financial data found to validate."

// Validate runs the full reconciliation for one ticker: fill gaps in
// primary from secondary, score the enriched record, verify the original
// primary against secondary, and pick a route. Aliased primary keys are
// canonicalized first.
func (v *Validator) Validate(ticker string, primary model.Record, secondary model.SourceRecord) model.Outcome {
	log := zap.L().With(zap.String("ticker", ticker))

	if primary.Empty() {
		log.Warn("validation: no financial data to validate")
		res := v.Score(primary)
		ver := model.Verification{
			Source:       sourceName(secondary),
			SourceStatus: secondary.Status,
			Skipped:      true,
			Comparisons:  []model.ConflictRecord{},
			Conflicts:    []model.ConflictRecord{},
		}
		return model.Outcome{
			Ticker:       ticker,
			Enrichment:   model.Enrichment{Record: primary, Filled: []model.FilledMetric{}},
			Result:       res,
			Verification: ver,
			Route:        v.Route(res, ver),
			Report:       NoDataReport,
		}
	}

	primary = v.vocab.Canonicalize(primary)

	enr := v.Fill(primary, secondary)
	if n := len(enr.Filled); n > 0 {
		log.Info("validation: filled missing metrics",
			zap.Int("count", n),
			zap.Strings("metrics", enr.FilledKeys()),
			zap.String("source", sourceName(secondary)),
		)
	} else if !secondary.Usable() {
		log.Warn("validation: secondary source unavailable, enrichment skipped",
			zap.String("source", sourceName(secondary)),
			zap.String("status", string(secondary.Status)),
			zap.String("error", secondary.Err),
		)
	}

	res := v.Score(enr.Record)
	ver := v.Verify(primary, secondary)
	route := v.Route(res, ver)

	log.Info("validation: complete",
		zap.Int("completeness_score", res.CompletenessScore),
		zap.String("confidence", string(res.Confidence)),
		zap.Int("conflicts", len(ver.Conflicts)),
		zap.String("route", string(route)),
	)

	return model.Outcome{
		Ticker:       ticker,
		Enrichment:   enr,
		Result:       res,
		Verification: ver,
		Route:        route,
		Report:       combinedReport(ticker, res, enr, secondary, ver),
	}
}

func combinedReport(ticker string, res model.ValidationResult, enr model.Enrichment, secondary model.SourceRecord, ver model.Verification) string {
	sections := []string{
		strings.TrimRight(FormatValidationReport(ticker, res), "\n"),
		strings.TrimRight(enrichmentSection(enr, secondary), "\n"),
		strings.TrimRight(ver.Report, "\n"),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func enrichmentSection(enr model.Enrichment, secondary model.SourceRecord) string {
	source := sourceName(secondary)
	if !secondary.Usable() {
		var b strings.Builder
		b.WriteString("### Data Enrichment Skipped\n\n")
		if secondary.Status == model.SourceEmpty {
			fmt.Fprintf(&b, "%s returned no data.\n", source)
		} else {
			fmt.Fprintf(&b, "Could not fetch data from %s.\n", source)
		}
		if secondary.Err != "" {
			fmt.Fprintf(&b, "Error: %s\n", secondary.Err)
		}
		return b.String()
	}
	if enr.Summary != "" {
		return enr.Summary
	}
	return fmt.Sprintf("### Data Enrichment from %s\n\nNo missing metrics could be filled.\n", source)
}
