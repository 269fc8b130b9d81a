package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestToleranceCompare(t *testing.T) {
	t.Parallel()

	rel := Tolerance{Relative: 0.10}
	ratio := Tolerance{Relative: 0.10, Absolute: 0.02}

	tests := []struct {
		name     string
		tol      Tolerance
		a, b     float64
		conflict bool
		severity model.Severity
	}{
		{"pe within tolerance", rel, 20, 20.05, false, model.SeverityNone},
		{"debt to equity far apart", rel, 50, 90, true, model.SeverityMajor},
		{"just over the limit", rel, 100, 111.5, true, model.SeverityMinor},
		{"within the limit of the larger value", rel, 100, 110, false, model.SeverityNone},
		{"both zero", rel, 0, 0, false, model.SeverityNone},
		{"small ratio under absolute floor", ratio, 0.004, 0.006, false, model.SeverityNone},
		{"small ratio over absolute floor", ratio, 0.01, 0.04, true, model.SeverityMinor},
		{"opposite signs", rel, -5, 5, true, model.SeverityMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := tt.tol.Compare(tt.a, tt.b)
			assert.Equal(t, tt.conflict, c.Conflict)
			assert.Equal(t, tt.severity, c.Severity)

			swapped := tt.tol.Compare(tt.b, tt.a)
			assert.Equal(t, c, swapped, "comparison is symmetric")
		})
	}
}

func TestToleranceRelativeDiff(t *testing.T) {
	t.Parallel()

	c := Tolerance{Relative: 0.1}.Compare(50, 90)
	assert.InDelta(t, 40, c.Diff, 1e-9)
	assert.InDelta(t, 40.0/90.0, c.RelativeDiff, 1e-9)
	assert.InDelta(t, 9, c.Limit, 1e-9)

	assert.Zero(t, Tolerance{Relative: 0.1}.Compare(0, 0).RelativeDiff)
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	v := Default()
	p := DefaultPolicy()

	pe, _ := v.Lookup(model.KeyTrailingPE)
	assert.Equal(t, Tolerance{Relative: 0.10}, p.For(pe))

	margin, _ := v.Lookup(model.KeyProfitMargins)
	assert.Equal(t, Tolerance{Relative: 0.10, Absolute: 0.02}, p.For(margin))

	custom, err := NewPolicy(
		map[Class]Tolerance{ClassCurrency: {Relative: 0.05}},
		map[string]Tolerance{model.KeyDividendYield: {Relative: 0.25, Absolute: 0.005}},
	)
	require.NoError(t, err)

	mcap, _ := v.Lookup(model.KeyMarketCap)
	assert.Equal(t, Tolerance{Relative: 0.05}, custom.For(mcap))
	yield, _ := v.Lookup(model.KeyDividendYield)
	assert.Equal(t, Tolerance{Relative: 0.25, Absolute: 0.005}, custom.For(yield))
	assert.Equal(t, Tolerance{Relative: 0.10}, custom.For(pe), "untouched classes keep defaults")
}

func TestNewPolicyRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewPolicy(map[Class]Tolerance{ClassRatio: {Relative: -1}}, nil)
	require.Error(t, err)

	_, err = NewPolicy(map[Class]Tolerance{ClassBundle: {Relative: 0.1}}, nil)
	require.Error(t, err)

	_, err = NewPolicy(nil, map[string]Tolerance{"x": {Absolute: -0.5}})
	require.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy([]byte(`
tolerances:
  classes:
    multiple:
      relative: 0.15
  metrics:
    debt_to_equity:
      relative: 0.2
      absolute: 5
`))
	require.NoError(t, err)

	v := Default()
	pe, _ := v.Lookup(model.KeyForwardPE)
	assert.Equal(t, Tolerance{Relative: 0.15}, p.For(pe))
	de, _ := v.Lookup(model.KeyDebtToEquity)
	assert.Equal(t, Tolerance{Relative: 0.2, Absolute: 5}, p.For(de))

	_, err = ParsePolicy([]byte("tolerances: [unclosed"))
	require.Error(t, err)
}
