package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestRoute(t *testing.T) {
	t.Parallel()

	low := model.ValidationResult{Confidence: model.ConfidenceLow}
	high := model.ValidationResult{Confidence: model.ConfidenceHigh}
	conflicted := model.Verification{Conflicts: []model.ConflictRecord{{Key: model.KeyDebtToEquity, Conflict: true}}}
	clean := model.Verification{}

	v := New()
	assert.Equal(t, model.RouteHumanReview, v.Route(high, conflicted))
	assert.Equal(t, model.RouteAnalysis, v.Route(high, clean))
	assert.Equal(t, model.RouteAnalysis, v.Route(low, clean), "low confidence alone continues by default")

	strict := New(WithReviewOnLowConfidence(true))
	assert.Equal(t, model.RouteHumanReview, strict.Route(low, clean))
	assert.Equal(t, model.RouteAnalysis, strict.Route(high, clean))
}

func TestApplyResolutions(t *testing.T) {
	t.Parallel()

	rec := model.NewRecord(map[string]model.Value{
		model.KeyDebtToEquity: num(50),
		model.KeyTrailingPE:   num(20),
		model.KeyMarketCap:    num(2e12),
	})
	conflicts := []model.ConflictRecord{
		{Key: model.KeyDebtToEquity, Primary: 50, Secondary: 90, Conflict: true},
		{Key: model.KeyTrailingPE, Primary: 20, Secondary: 30, Conflict: true},
		{Key: model.KeyMarketCap, Primary: 2e12, Secondary: 2.5e12, Conflict: true},
	}
	manual := 70.0

	out, err := ApplyResolutions(rec, conflicts, []Resolution{
		{Key: model.KeyDebtToEquity, Choice: ChoiceUseSecondary},
		{Key: model.KeyTrailingPE, Choice: ChoiceKeepPrimary},
		{Key: model.KeyMarketCap, Choice: ChoiceManual, Value: &manual},
	})
	require.NoError(t, err)
	assert.True(t, out.Get(model.KeyDebtToEquity).Equal(num(90)))
	assert.True(t, out.Get(model.KeyTrailingPE).Equal(num(20)))
	assert.True(t, out.Get(model.KeyMarketCap).Equal(num(70)))
	assert.True(t, rec.Get(model.KeyDebtToEquity).Equal(num(50)), "input is untouched")
}

func TestApplyResolutions_Errors(t *testing.T) {
	t.Parallel()

	rec := model.NewRecord(map[string]model.Value{model.KeyDebtToEquity: num(50)})
	conflicts := []model.ConflictRecord{{Key: model.KeyDebtToEquity, Primary: 50, Secondary: 90}}
	nan := math.NaN()

	tests := []struct {
		name string
		res  Resolution
		msg  string
	}{
		{"unknown metric", Resolution{Key: model.KeyMarketCap, Choice: ChoiceKeepPrimary}, "no conflict"},
		{"manual without value", Resolution{Key: model.KeyDebtToEquity, Choice: ChoiceManual}, "needs a value"},
		{"manual not finite", Resolution{Key: model.KeyDebtToEquity, Choice: ChoiceManual, Value: &nan}, "must be finite"},
		{"unknown choice", Resolution{Key: model.KeyDebtToEquity, Choice: "average"}, "unknown resolution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := ApplyResolutions(rec, conflicts, []Resolution{tt.res})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.True(t, out.Equal(rec))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	secondary := model.NewSource(av, model.NewRecord(map[string]model.Value{
		model.KeyDebtToEquity: num(90),
	}))
	out := Validate("AAPL", sevenOfEight(), secondary)
	require.Equal(t, model.RouteHumanReview, out.Route)

	resolved, err := New().Resolve(out, []Resolution{
		{Key: model.KeyDebtToEquity, Choice: ChoiceUseSecondary},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RouteAnalysis, resolved.Route)
	assert.True(t, resolved.Enrichment.Record.Get(model.KeyDebtToEquity).Equal(num(90)))
	assert.Equal(t, out.Result.CompletenessScore, resolved.Result.CompletenessScore)
	assert.Contains(t, resolved.Report, "### Reviewer Resolutions")
	assert.Contains(t, resolved.Report, "- Debt to Equity: use_secondary")
	assert.True(t, out.Enrichment.Record.Get(model.KeyDebtToEquity).Equal(sevenOfEight().Get(model.KeyDebtToEquity)), "input outcome is untouched")
}

func TestResolve_Manual(t *testing.T) {
	t.Parallel()

	secondary := model.NewSource(av, model.NewRecord(map[string]model.Value{
		model.KeyDebtToEquity: num(90),
	}))
	out := Validate("AAPL", sevenOfEight(), secondary)
	manual := 70.0

	resolved, err := New().Resolve(out, []Resolution{
		{Key: model.KeyDebtToEquity, Choice: ChoiceManual, Value: &manual},
	})
	require.NoError(t, err)
	assert.True(t, resolved.Enrichment.Record.Get(model.KeyDebtToEquity).Equal(num(70)))
	assert.Contains(t, resolved.Report, "- Debt to Equity: manual value 70")
}

func TestResolve_Error(t *testing.T) {
	t.Parallel()

	out := Validate("AAPL", sevenOfEight(), model.NewSource(av, model.Record{}))
	resolved, err := New().Resolve(out, []Resolution{{Key: model.KeyDebtToEquity, Choice: ChoiceKeepPrimary}})
	require.Error(t, err)
	assert.Equal(t, out.Report, resolved.Report)
}
