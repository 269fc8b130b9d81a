package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestDefaultVocabulary(t *testing.T) {
	t.Parallel()

	v := Default()
	assert.Len(t, v.Tier(Critical), 8)
	assert.Len(t, v.Tier(Optional), 6)
	assert.Len(t, v.Tier(Advanced), 5)
	assert.Equal(t, 19, v.Total())

	assert.Equal(t, []string{
		"current_price", "market_cap", "revenue_growth", "profit_margins",
		"trailing_pe", "debt_to_equity", "free_cash_flow", "return_on_equity",
	}, v.Keys(Critical))

	for _, m := range v.Tier(Advanced) {
		assert.False(t, m.Scalar(), m.Key)
	}
	for _, m := range v.Tier(Critical) {
		assert.True(t, m.Scalar(), m.Key)
		assert.Equal(t, Critical, m.Tier)
	}
}

func TestVocabularyResolve(t *testing.T) {
	t.Parallel()

	v := Default()
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"market_cap", "market_cap", true},
		{"MarketCapitalization", "market_cap", true},
		{"PERatio", "trailing_pe", true},
		{"ProfitMargin", "profit_margins", true},
		{"ReturnOnEquityTTM", "return_on_equity", true},
		{"QuarterlyRevenueGrowthYOY", "revenue_growth", true},
		{"Symbol", "", false},
	}
	for _, tt := range tests {
		got, ok := v.Resolve(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestVocabularyCanonicalize(t *testing.T) {
	t.Parallel()

	v := Default()
	r := model.NewRecord(map[string]model.Value{
		"MarketCapitalization": model.Number(2.5e12),
		"PERatio":              model.Number(30),
		"trailing_pe":          model.Number(29),
		"ProfitMargin":         model.Number(0.25),
		"profit_margins":       model.Null(),
		"Symbol":               model.Text("AAPL"),
	})

	got := v.Canonicalize(r)
	assert.True(t, got.Get("market_cap").Equal(model.Number(2.5e12)))
	assert.True(t, got.Get("trailing_pe").Equal(model.Number(29)), "canonical key wins")
	assert.True(t, got.Get("profit_margins").Equal(model.Number(0.25)), "alias fills null canonical")
	assert.True(t, got.Get("Symbol").Equal(model.Text("AAPL")))
	assert.False(t, got.Has("MarketCapitalization"))
	assert.False(t, got.Has("PERatio"))

	assert.False(t, r.Has("market_cap"), "input is untouched")
}

func TestNewVocabularyValidation(t *testing.T) {
	t.Parallel()

	t.Run("duplicate key across tiers", func(t *testing.T) {
		t.Parallel()
		_, err := New(map[Tier][]Metric{
			Critical: {{Key: "a"}},
			Optional: {{Key: "a"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "in both")
	})

	t.Run("alias shadows key", func(t *testing.T) {
		t.Parallel()
		_, err := New(map[Tier][]Metric{
			Critical: {{Key: "a"}, {Key: "b", Aliases: []string{"a"}}},
		})
		require.Error(t, err)
	})

	t.Run("alias claimed twice", func(t *testing.T) {
		t.Parallel()
		_, err := New(map[Tier][]Metric{
			Critical: {{Key: "a", Aliases: []string{"x"}}, {Key: "b", Aliases: []string{"x"}}},
		})
		require.Error(t, err)
	})

	t.Run("unknown class", func(t *testing.T) {
		t.Parallel()
		_, err := New(map[Tier][]Metric{Critical: {{Key: "a", Class: "weird"}}})
		require.Error(t, err)
	})

	t.Run("unknown tier", func(t *testing.T) {
		t.Parallel()
		_, err := New(map[Tier][]Metric{"bonus": {{Key: "a"}}})
		require.Error(t, err)
	})

	t.Run("missing tier is empty", func(t *testing.T) {
		t.Parallel()
		v, err := New(map[Tier][]Metric{Optional: {{Key: "a"}}})
		require.NoError(t, err)
		assert.Empty(t, v.Tier(Critical))
		assert.Equal(t, 1, v.Total())
		m, ok := v.Lookup("a")
		require.True(t, ok)
		assert.Equal(t, ClassCurrency, m.Class)
		assert.Equal(t, "a", m.Label)
	})
}

func TestLoadVocabulary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vocabulary.yaml")
	content := `
vocabulary:
  critical:
    - key: current_price
      label: Price
      class: currency
    - key: ebitda
      class: currency
      aliases: [EBITDA]
  optional:
    - key: beta
      class: multiple
  advanced:
    - key: technicals
      class: bundle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Total())
	assert.Equal(t, []string{"current_price", "ebitda"}, v.Keys(Critical))
	key, ok := v.Resolve("EBITDA")
	assert.True(t, ok)
	assert.Equal(t, "ebitda", key)
	assert.Equal(t, "Price", v.Label("current_price"))

	_, err = LoadVocabulary(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read vocabulary")
}
