package validation

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/model"
)

// Confidence thresholds. Rules are checked in order; the first match wins.
const (
	highCriticalPct    = 90.0
	highCompleteness   = 80
	mediumCriticalPct  = 70.0
	mediumCompleteness = 60
)

// Score computes completeness, confidence and warnings for r. Scoring never
// fails: aliased keys count under their canonical metric, other keys outside
// the vocabulary are ignored and absent keys count as missing.
func (v *Validator) Score(r model.Record) model.ValidationResult {
	r = v.vocab.Canonicalize(r)
	res := model.ValidationResult{
		TotalMetrics: v.vocab.Total(),
		Tiers:        make([]model.TierCount, 0, len(metrics.Tiers)),
		Warnings:     []string{},
	}

	for _, tier := range metrics.Tiers {
		tc := model.TierCount{Tier: string(tier), Available: []string{}, Missing: []string{}}
		for _, m := range v.vocab.Tier(tier) {
			tc.Total++
			if r.Get(m.Key).Available() {
				tc.Available = append(tc.Available, m.Key)
			} else {
				tc.Missing = append(tc.Missing, m.Key)
			}
		}
		res.AvailableMetrics += len(tc.Available)
		res.Tiers = append(res.Tiers, tc)
	}

	if res.TotalMetrics > 0 {
		res.CompletenessScore = 100 * res.AvailableMetrics / res.TotalMetrics
	}

	critical := res.Tier(string(metrics.Critical))
	if critical.Total > 0 {
		res.CriticalPercentage = 100 * float64(len(critical.Available)) / float64(critical.Total)
	}

	res.Confidence = confidenceFor(res.CriticalPercentage, res.CompletenessScore)
	res.Warnings = warningsFor(res)
	return res
}

// ScoreJSON decodes data as a record and scores it. A document that is not
// a JSON object scores as an empty record.
func (v *Validator) ScoreJSON(data []byte) model.ValidationResult {
	r, err := model.DecodeRecord(data)
	if err != nil {
		zap.L().Debug("validation: record is not an object, scoring as empty", zap.Error(err))
		r = model.Record{}
	}
	return v.Score(r)
}

func confidenceFor(criticalPct float64, score int) model.ConfidenceLevel {
	switch {
	case criticalPct >= highCriticalPct && score >= highCompleteness:
		return model.ConfidenceHigh
	case criticalPct >= mediumCriticalPct && score >= mediumCompleteness:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func warningsFor(res model.ValidationResult) []string {
	warnings := []string{}

	critical := res.Tier(string(metrics.Critical))
	if n := len(critical.Missing); n > 0 {
		shown := critical.Missing[:min(n, 3)]
		warnings = append(warnings, fmt.Sprintf("Missing %d critical metric(s): %s", n, strings.Join(shown, ", ")))
	}
	if critical.Total > 0 && res.CriticalPercentage < mediumCriticalPct {
		warnings = append(warnings, fmt.Sprintf("Only %d%% of critical metrics available - analysis may be unreliable", int(res.CriticalPercentage)))
	}

	advanced := res.Tier(string(metrics.Advanced))
	if slices.Contains(advanced.Missing, model.KeyTechnicals) {
		warnings = append(warnings, "Technical analysis not available (no historical price data)")
	}
	if slices.Contains(advanced.Missing, model.KeyFinancialTrends) {
		warnings = append(warnings, "Trend analysis not available (no quarterly data)")
	}
	return warnings
}
