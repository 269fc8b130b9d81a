package indicators

import (
	"math"

	"github.com/sells-group/equity-cli/internal/model"
)

// Indicator windows.
const (
	ShortSMA   = 50
	LongSMA    = 200
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// Trend labels.
const (
	TrendBullish    = "bullish"
	TrendBearish    = "bearish"
	TrendNeutral    = "neutral"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// Technicals computes moving averages, RSI and MACD from closing prices.
// Indicators without enough history are nil. It returns nil for an empty
// series.
func Technicals(closes []float64) *model.Technicals {
	if len(closes) == 0 {
		return nil
	}

	t := &model.Technicals{
		LastClose: finite(last(closes)),
		SMA50:     finite(sma(closes, ShortSMA)),
		SMA200:    finite(sma(closes, LongSMA)),
		RSI14:     finite(rsi(closes, RSIPeriod)),
	}

	if len(closes) >= MACDSlow {
		fast := ema(closes, MACDFast)
		slow := ema(closes, MACDSlow)
		line := make([]float64, len(closes))
		for i := range closes {
			line[i] = fast[i] - slow[i]
		}
		signal := ema(line, MACDSignal)
		m, s := last(line), last(signal)
		t.MACD = finite(m)
		t.MACDSignal = finite(s)
		t.MACDHistogram = finite(m - s)
	}

	t.Trend = trend(t)
	return t
}

// rsi is the simple-average relative strength index over the last period
// price changes. A window with no losses is 100; a flat window is NaN.
func rsi(closes []float64, period int) float64 {
	if len(closes) <= period {
		return math.NaN()
	}
	window := closes[len(closes)-period-1:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	if loss == 0 {
		if gain == 0 {
			return math.NaN()
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// trend labels price stacked above or below both moving averages.
func trend(t *model.Technicals) string {
	if t.LastClose == nil || t.SMA50 == nil || t.SMA200 == nil {
		return ""
	}
	c, s, l := *t.LastClose, *t.SMA50, *t.SMA200
	switch {
	case c > s && s > l:
		return TrendBullish
	case c < s && s < l:
		return TrendBearish
	default:
		return TrendNeutral
	}
}
