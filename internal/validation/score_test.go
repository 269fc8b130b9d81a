package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/model"
)

func num(f float64) model.Value { return model.Number(f) }

// sevenOfEight is the critical tier with market_cap null.
func sevenOfEight() model.Record {
	return model.NewRecord(map[string]model.Value{
		model.KeyCurrentPrice:   num(150),
		model.KeyMarketCap:      model.Null(),
		model.KeyRevenueGrowth:  num(0.1),
		model.KeyProfitMargins:  num(0.2),
		model.KeyTrailingPE:     num(20),
		model.KeyDebtToEquity:   num(50),
		model.KeyFreeCashFlow:   num(1e9),
		model.KeyReturnOnEquity: num(0.15),
	})
}

func fullRecord() model.Record {
	values := map[string]model.Value{}
	for _, m := range metrics.Default().Metrics() {
		if m.Scalar() {
			values[m.Key] = num(1)
		} else {
			values[m.Key] = model.Bundle(map[string]model.Value{"x": num(1)})
		}
	}
	return model.NewRecord(values)
}

func TestScore_EmptyRecord(t *testing.T) {
	t.Parallel()

	res := Score(model.Record{})
	assert.Equal(t, 0, res.CompletenessScore)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Equal(t, 19, res.TotalMetrics)
	assert.Equal(t, 0, res.AvailableMetrics)
	assert.Len(t, res.MissingCritical(), 8)
	assert.Len(t, res.MissingOptional(), 6)
	assert.Len(t, res.Tier("advanced").Missing, 5)
	assert.Zero(t, res.CriticalPercentage)

	require.Len(t, res.Warnings, 4)
	assert.Equal(t, "Missing 8 critical metric(s): current_price, market_cap, revenue_growth", res.Warnings[0])
	assert.Equal(t, "Only 0% of critical metrics available - analysis may be unreliable", res.Warnings[1])
	assert.Equal(t, "Technical analysis not available (no historical price data)", res.Warnings[2])
	assert.Equal(t, "Trend analysis not available (no quarterly data)", res.Warnings[3])
}

func TestScore_SevenOfEightCritical(t *testing.T) {
	t.Parallel()

	res := Score(sevenOfEight())
	assert.Len(t, res.Tier("critical").Available, 7)
	assert.InDelta(t, 87.5, res.CriticalPercentage, 1e-9)
	assert.Equal(t, 36, res.CompletenessScore)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Equal(t, []string{model.KeyMarketCap}, res.MissingCritical())
	assert.Contains(t, res.Warnings, "Missing 1 critical metric(s): market_cap")
	for _, w := range res.Warnings {
		assert.NotContains(t, w, "Only")
	}
}

func TestScore_FullRecordIsHigh(t *testing.T) {
	t.Parallel()

	res := Score(fullRecord())
	assert.Equal(t, 100, res.CompletenessScore)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.Empty(t, res.Warnings)
}

func TestScore_ConfidenceThresholds(t *testing.T) {
	t.Parallel()

	full := fullRecord()
	drop := func(keys ...string) model.Record {
		r := full
		for _, k := range keys {
			r = r.Without(k)
		}
		return r
	}

	tests := []struct {
		name  string
		rec   model.Record
		score int
		want  model.ConfidenceLevel
	}{
		// 16/19 = 84, critical 100%.
		{"high", drop(model.KeyForwardPE, model.KeyPEGRatio, model.KeyRiskMetrics), 84, model.ConfidenceHigh},
		// 15/19 = 78, critical 100%: score misses High.
		{"medium on score", drop(model.KeyForwardPE, model.KeyPEGRatio, model.KeyRiskMetrics, model.KeyVolumeTrends), 78, model.ConfidenceMedium},
		// 18/19 = 94, critical 87.5%: critical misses High.
		{"medium on critical", drop(model.KeyMarketCap), 94, model.ConfidenceMedium},
		// 16/19 = 84, critical 62.5%.
		{"low on critical", drop(model.KeyMarketCap, model.KeyTrailingPE, model.KeyFreeCashFlow), 84, model.ConfidenceLow},
		// 11/19 = 57, critical 100%.
		{"low on score", drop(model.KeyForwardPE, model.KeyPEGRatio, model.KeyDividendYield, model.KeyPayoutRatio,
			model.KeyReturnOnAssets, model.KeyOperatingCashflow, model.KeyRiskMetrics, model.KeyVolumeTrends), 57, model.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Score(tt.rec)
			assert.Equal(t, tt.score, res.CompletenessScore)
			assert.Equal(t, tt.want, res.Confidence)
		})
	}
}

func TestScore_OnlyCriticalCanStillScoreLow(t *testing.T) {
	t.Parallel()

	r := sevenOfEight().With(model.KeyMarketCap, num(2.5e12))
	res := Score(r)
	assert.Equal(t, 42, res.CompletenessScore)
	assert.InDelta(t, 100, res.CriticalPercentage, 1e-9)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
}

func TestScore_AdvancedAvailability(t *testing.T) {
	t.Parallel()

	r := model.NewRecord(map[string]model.Value{
		model.KeyTechnicals:      model.Bundle(map[string]model.Value{"rsi_14": model.Null()}),
		model.KeyFinancialTrends: model.Bundle(map[string]model.Value{"revenue": model.NumberSeries(1, 2)}),
		model.KeyRiskMetrics:     model.Bundle(nil),
		model.KeyVolumeTrends:    model.Series(model.Null()),
		model.KeyDividendTrends:  model.Series(num(0.5)),
	})
	res := Score(r)
	adv := res.Tier("advanced")
	assert.Equal(t, []string{model.KeyFinancialTrends, model.KeyDividendTrends}, adv.Available)
	assert.Contains(t, res.Warnings, "Technical analysis not available (no historical price data)")
	assert.NotContains(t, res.Warnings, "Trend analysis not available (no quarterly data)")
}

func TestScore_ZeroIsAvailable(t *testing.T) {
	t.Parallel()

	res := Score(model.NewRecord(map[string]model.Value{model.KeyDividendYield: num(0)}))
	assert.Equal(t, []string{model.KeyDividendYield}, res.Tier("optional").Available)
}

func TestScore_Idempotent(t *testing.T) {
	t.Parallel()

	r := sevenOfEight()
	assert.Equal(t, Score(r), Score(r))
}

func TestScore_Bounds(t *testing.T) {
	t.Parallel()

	for _, r := range []model.Record{{}, sevenOfEight(), fullRecord()} {
		res := Score(r)
		assert.GreaterOrEqual(t, res.CompletenessScore, 0)
		assert.LessOrEqual(t, res.CompletenessScore, 100)
		assert.Contains(t, []model.ConfidenceLevel{model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow}, res.Confidence)
	}
}

func TestScore_MonotonicInCriticalMetrics(t *testing.T) {
	t.Parallel()

	rank := map[model.ConfidenceLevel]int{model.ConfidenceLow: 0, model.ConfidenceMedium: 1, model.ConfidenceHigh: 2}
	bases := []model.Record{{}, sevenOfEight(), fullRecord().Without(model.KeyMarketCap).Without(model.KeyTrailingPE)}

	for _, base := range bases {
		before := Score(base)
		for _, key := range metrics.Default().Keys(metrics.Critical) {
			if base.Get(key).Available() {
				continue
			}
			after := Score(base.With(key, num(1)))
			assert.GreaterOrEqual(t, after.CompletenessScore, before.CompletenessScore, key)
			assert.GreaterOrEqual(t, rank[after.Confidence], rank[before.Confidence], key)
		}
	}
}

func TestScore_ExtendedVocabulary(t *testing.T) {
	t.Parallel()

	vocab, err := metrics.New(map[metrics.Tier][]metrics.Metric{
		metrics.Critical: {{Key: "a"}, {Key: "b"}},
		metrics.Optional: {{Key: "c"}},
	})
	require.NoError(t, err)

	v := New(WithVocabulary(vocab))
	res := v.Score(model.NewRecord(map[string]model.Value{"a": num(1), "b": num(2), "zzz": num(3)}))
	assert.Equal(t, 3, res.TotalMetrics)
	assert.Equal(t, 66, res.CompletenessScore)
	assert.InDelta(t, 100, res.CriticalPercentage, 1e-9)
	assert.Empty(t, res.Warnings, "technicals and trends are not part of this vocabulary")
}

func TestScore_EmptyCriticalTier(t *testing.T) {
	t.Parallel()

	vocab, err := metrics.New(map[metrics.Tier][]metrics.Metric{
		metrics.Optional: {{Key: "c"}},
	})
	require.NoError(t, err)

	res := New(WithVocabulary(vocab)).Score(model.Record{})
	assert.Zero(t, res.CriticalPercentage)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Empty(t, res.Warnings)
}

func TestScoreJSON(t *testing.T) {
	t.Parallel()

	v := New()
	res := v.ScoreJSON([]byte(`{"current_price": 150, "market_cap": null}`))
	assert.Equal(t, []string{model.KeyCurrentPrice}, res.Tier("critical").Available)

	for _, bad := range []string{`[1,2,3]`, `"AAPL"`, `not json`, ``} {
		res := v.ScoreJSON([]byte(bad))
		assert.Equal(t, 0, res.CompletenessScore, bad)
		assert.Equal(t, model.ConfidenceLow, res.Confidence, bad)
		assert.Len(t, res.MissingCritical(), 8, bad)
	}
}

func TestScore_CountsAliasedKeys(t *testing.T) {
	t.Parallel()

	aliased := Score(model.NewRecord(map[string]model.Value{"marketCap": num(1e12), "currentPrice": num(150)}))
	canonical := Score(model.NewRecord(map[string]model.Value{model.KeyMarketCap: num(1e12), model.KeyCurrentPrice: num(150)}))
	assert.Equal(t, canonical, aliased)
	assert.Contains(t, aliased.Tier("critical").Available, model.KeyMarketCap)
}
