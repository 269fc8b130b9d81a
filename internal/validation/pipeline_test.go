package validation

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestValidate_EmptyPrimary(t *testing.T) {
	t.Parallel()

	out := Validate("AAPL", model.Record{}, model.NewSource(av, model.NewRecord(map[string]model.Value{
		model.KeyMarketCap: num(1),
	})))
	assert.Equal(t, NoDataReport, out.Report)
	assert.Equal(t, 0, out.Result.CompletenessScore)
	assert.Equal(t, model.ConfidenceLow, out.Result.Confidence)
	assert.Empty(t, out.Enrichment.Filled)
	assert.Empty(t, out.Verification.Conflicts)
	assert.Equal(t, model.RouteAnalysis, out.Route)
}

func TestValidate_FillsThenScoresAndVerifiesOriginal(t *testing.T) {
	t.Parallel()

	primary := sevenOfEight()
	secondary := model.NewSource(av, model.NewRecord(map[string]model.Value{
		"MarketCapitalization": model.Text("2500000000000"),
		"PERatio":              model.Text("20.05"),
		model.KeyDebtToEquity:  num(90),
	}))

	out := Validate("AAPL", primary, secondary)
	assert.Equal(t, "AAPL", out.Ticker)
	assert.Equal(t, []string{model.KeyMarketCap}, out.Enrichment.FilledKeys())
	assert.Equal(t, 42, out.Result.CompletenessScore)

	names := conflictKeys(out.Verification)
	assert.Equal(t, []string{model.KeyDebtToEquity}, names)
	for _, c := range out.Verification.Comparisons {
		assert.NotEqual(t, model.KeyMarketCap, c.Key, "filled values are not compared against their own source")
	}
	assert.Equal(t, model.RouteHumanReview, out.Route)

	iScore := strings.Index(out.Report, "## Data Quality Report for AAPL")
	iFill := strings.Index(out.Report, "### Data Enrichment from Alpha Vantage")
	iVerify := strings.Index(out.Report, "### Cross-Source Verification (Alpha Vantage)")
	require.True(t, iScore >= 0 && iFill > iScore && iVerify > iFill, out.Report)
}

func TestValidate_SecondaryUnavailable(t *testing.T) {
	t.Parallel()

	out := Validate("MSFT", sevenOfEight(), model.Unavailable(av, errors.New("circuit breaker is open")))
	assert.Empty(t, out.Enrichment.Filled)
	assert.True(t, out.Enrichment.Record.Equal(sevenOfEight()))
	assert.True(t, out.Verification.Skipped)
	assert.Equal(t, model.RouteAnalysis, out.Route)
	assert.Contains(t, out.Report, "### Data Enrichment Skipped")
	assert.Contains(t, out.Report, "Could not fetch data from Alpha Vantage.")
	assert.Contains(t, out.Report, "### Verification Skipped")
	assert.Contains(t, out.Report, "Error: circuit breaker is open")
}

func TestValidate_NothingToFill(t *testing.T) {
	t.Parallel()

	out := Validate("AAPL", fullRecord(), model.NewSource(av, model.NewRecord(map[string]model.Value{
		model.KeyCurrentPrice: num(1),
	})))
	assert.Equal(t, "", out.Enrichment.Summary)
	assert.Contains(t, out.Report, "No missing metrics could be filled.")
}

func TestValidate_CanonicalizesPrimaryAliases(t *testing.T) {
	t.Parallel()

	primary := model.NewRecord(map[string]model.Value{"currentPrice": num(150), "marketCap": num(3e12)})
	out := Validate("AAPL", primary, model.NewSource(av, model.NewRecord(map[string]model.Value{
		model.KeyMarketCap: num(1),
	})))
	assert.Empty(t, out.Enrichment.Filled)
	assert.True(t, out.Enrichment.Record.Get(model.KeyMarketCap).Equal(num(3e12)))
}

func TestValidate_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	v := New()
	primary := sevenOfEight()
	secondary := model.NewSource(av, model.NewRecord(map[string]model.Value{model.KeyMarketCap: num(2.5e12)}))
	want := v.Validate("AAPL", primary, secondary)

	var wg sync.WaitGroup
	results := make([]model.Outcome, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Validate("AAPL", primary, secondary)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Report, got.Report)
		assert.Equal(t, want.Result, got.Result)
	}
}

func TestValidate_SecondaryEmptyIsNotAFailure(t *testing.T) {
	t.Parallel()

	out := Validate("MSFT", sevenOfEight(), model.NewSource(av, model.Record{}))
	assert.True(t, out.Verification.Skipped)
	assert.Contains(t, out.Report, "Alpha Vantage returned no data.")
	assert.Contains(t, out.Report, "Alpha Vantage returned no data; nothing to verify.")
	assert.NotContains(t, out.Report, "Could not fetch")
}
