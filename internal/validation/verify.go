package validation

import (
	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/model"
)

// Verify compares every scalar metric that is numeric in both primary and
// secondary under the tolerance policy. Metrics present on only one side
// are not compared. When the secondary source is unavailable or empty the
// result is marked skipped with no comparisons.
func (v *Validator) Verify(primary model.Record, secondary model.SourceRecord) model.Verification {
	ver := model.Verification{
		Source:       sourceName(secondary),
		SourceStatus: secondary.Status,
		Comparisons:  []model.ConflictRecord{},
		Conflicts:    []model.ConflictRecord{},
	}
	if !secondary.Usable() {
		ver.Skipped = true
		if secondary.Status != model.SourceUnavailable {
			ver.SourceStatus = model.SourceEmpty
		}
		ver.Report = FormatVerificationReport(v.vocab, ver, secondary.Err)
		return ver
	}

	pri := v.vocab.Canonicalize(primary)
	sec := v.vocab.Canonicalize(secondary.Record)

	for _, m := range v.vocab.Metrics() {
		if !m.Scalar() {
			continue
		}
		a, okA := pri.Get(m.Key).Numeric()
		b, okB := sec.Get(m.Key).Numeric()
		if !okA || !okB {
			continue
		}

		c := v.policy.For(m).Compare(a, b)
		rec := model.ConflictRecord{
			Key:          m.Key,
			Primary:      a,
			Secondary:    b,
			Diff:         c.Diff,
			RelativeDiff: c.RelativeDiff,
			Limit:        c.Limit,
			Conflict:     c.Conflict,
			Severity:     c.Severity,
		}
		ver.Comparisons = append(ver.Comparisons, rec)
		if !c.Conflict {
			continue
		}
		ver.Conflicts = append(ver.Conflicts, rec)
		zap.L().Warn("validation: cross-source conflict detected",
			zap.String("metric", m.Key),
			zap.String("source", ver.Source),
			zap.Float64("primary", a),
			zap.Float64("secondary", b),
			zap.Float64("relative_diff", c.RelativeDiff),
			zap.String("severity", string(c.Severity)),
		)
	}

	ver.Report = FormatVerificationReport(v.vocab, ver, "")
	return ver
}
