package indicators

import (
	"math"

	"github.com/sells-group/equity-cli/internal/model"
)

// RiskMetrics computes annualized volatility, maximum drawdown, Sharpe ratio
// (zero risk-free rate) and trailing one-year return from closing prices.
// It returns nil with fewer than two closes.
func RiskMetrics(closes []float64) *model.RiskMetrics {
	if len(closes) < 2 {
		return nil
	}

	returns := dailyReturns(closes)
	rm := &model.RiskMetrics{MaxDrawdown: finite(maxDrawdown(closes))}

	sd := stddev(returns)
	rm.Volatility = finite(sd * math.Sqrt(TradingDays))
	switch {
	case math.IsNaN(sd):
	case sd == 0:
		zero := 0.0
		rm.SharpeRatio = &zero
	default:
		rm.SharpeRatio = finite(mean(returns) / sd * math.Sqrt(TradingDays))
	}

	if len(closes) > TradingDays {
		rm.Return1Y = finite(growth(last(closes), closes[len(closes)-1-TradingDays]))
	}
	return rm
}

// dailyReturns are simple percentage changes, skipping non-positive prices.
func dailyReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// maxDrawdown is the most negative decline from a running peak, as a
// fraction (for example -0.25).
func maxDrawdown(closes []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}
