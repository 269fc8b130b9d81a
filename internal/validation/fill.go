package validation

import (
	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/model"
)

// fillTiers are the tiers eligible for gap filling, in fill order.
var fillTiers = []metrics.Tier{metrics.Critical, metrics.Optional}

// Fill copies secondary values into the null or absent critical and optional
// scalar metrics of primary. Present primary values, zero included, are
// never replaced and bundle metrics are never touched. Secondary keys are
// matched through the vocabulary aliases, and aliased primary keys are
// canonicalized first. When the secondary source is unavailable or empty
// the canonical primary record is returned.
func (v *Validator) Fill(primary model.Record, secondary model.SourceRecord) model.Enrichment {
	primary = v.vocab.Canonicalize(primary)
	enr := model.Enrichment{Record: primary, Filled: []model.FilledMetric{}}
	if !secondary.Usable() {
		return enr
	}

	source := sourceName(secondary)
	sec := v.vocab.Canonicalize(secondary.Record)
	out := primary

	for _, tier := range fillTiers {
		for _, m := range v.vocab.Tier(tier) {
			if !m.Scalar() || !primary.Get(m.Key).IsNull() {
				continue
			}
			f, ok := sec.Get(m.Key).Numeric()
			if !ok {
				continue
			}
			val := model.Number(f)
			out = out.With(m.Key, val)
			enr.Filled = append(enr.Filled, model.FilledMetric{Key: m.Key, Source: source, Value: val})

			zap.L().Debug("validation: filled metric",
				zap.String("metric", m.Key),
				zap.String("source", source),
				zap.Float64("value", f),
			)
		}
	}

	enr.Record = out
	enr.Summary = FormatFillSummary(v.vocab, source, enr.Filled)
	return enr
}

func sourceName(s model.SourceRecord) string {
	if s.Name == "" {
		return "secondary source"
	}
	return s.Name
}
