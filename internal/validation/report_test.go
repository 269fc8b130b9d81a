package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/equity-cli/internal/model"
)

func TestFormatValidationReport(t *testing.T) {
	t.Parallel()

	report := FormatValidationReport("AAPL", Score(sevenOfEight()))

	assert.Contains(t, report, "## Data Quality Report for AAPL\n\n")
	assert.Contains(t, report, "**Completeness Score:** 36% | **Confidence Level:** Low")
	assert.Contains(t, report, "- Critical Metrics: 7/8 available\n")
	assert.Contains(t, report, "- Optional Metrics: 0/6 available\n")
	assert.Contains(t, report, "- Advanced Metrics: 0/5 available\n")
	assert.Contains(t, report, "### Warnings\n\n- Missing 1 critical metric(s): market_cap\n")
	assert.Contains(t, report, "### Missing Critical Metrics\n\n- `market_cap`\n")
}

func TestFormatValidationReport_NoWarnings(t *testing.T) {
	t.Parallel()

	report := FormatValidationReport("AAPL", Score(fullRecord()))
	assert.Contains(t, report, "**Completeness Score:** 100% | **Confidence Level:** High")
	assert.NotContains(t, report, "### Warnings")
	assert.NotContains(t, report, "### Missing Critical Metrics")
}

func TestFormatFillSummary_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", FormatFillSummary(New().Vocabulary(), av, nil))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{2.5e12, "2,500,000,000,000"},
		{-1234.6, "-1,235"},
		{150, "150"},
		{0.25, "0.25"},
		{0.123456, "0.1235"},
		{0, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), tt.in)
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,000", FormatValue(model.Number(1000)))
	assert.Equal(t, "n/a", FormatValue(model.Text("n/a")))
	assert.Equal(t, "null", FormatValue(model.Null()))
}
