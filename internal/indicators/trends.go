package indicators

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/equity-cli/internal/model"
)

// Quarter is one quarterly income statement. Nil values were not reported.
type Quarter struct {
	FiscalDate time.Time
	Revenue    *float64
	NetIncome  *float64
}

// Payment is one dividend payment.
type Payment struct {
	Date   time.Time
	Amount float64
}

// trendQuarters is the number of quarters kept; five allows a year-over-year
// comparison.
const trendQuarters = 5

// dividendYears is the number of calendar years kept.
const dividendYears = 3

// FinancialTrends builds revenue and net income series, newest first, with
// quarter-over-quarter and year-over-year growth. It returns nil when no
// quarter reports either figure.
func FinancialTrends(quarters []Quarter) *model.FinancialTrends {
	qs := append([]Quarter(nil), quarters...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].FiscalDate.After(qs[j].FiscalDate) })
	if len(qs) > trendQuarters {
		qs = qs[:trendQuarters]
	}

	revenue := series(qs, func(q Quarter) *float64 { return q.Revenue })
	income := series(qs, func(q Quarter) *float64 { return q.NetIncome })
	if len(revenue) == 0 && len(income) == 0 {
		return nil
	}

	ft := &model.FinancialTrends{Revenue: revenue, NetIncome: income}
	if len(revenue) >= 2 {
		ft.RevenueGrowthQoQ = finite(round(growth(revenue[0], revenue[1]), 4))
	}
	if len(revenue) >= trendQuarters {
		ft.RevenueGrowthYoY = finite(round(growth(revenue[0], revenue[trendQuarters-1]), 4))
	}
	if len(income) >= trendQuarters {
		ft.NetIncomeGrowthYoY = finite(round(growth(income[0], income[trendQuarters-1]), 4))
	}
	return ft
}

// series collects the leading run of reported values; a gap ends it so the
// positions stay aligned with quarters.
func series(qs []Quarter, get func(Quarter) *float64) []float64 {
	var out []float64
	for _, q := range qs {
		v := get(q)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			break
		}
		out = append(out, *v)
	}
	return out
}

// DividendTrends sums payments per calendar year and keeps the latest three
// years, newest first, with the compound annual growth between the oldest
// and newest kept year. It returns nil without payments.
func DividendTrends(payments []Payment) *model.DividendTrends {
	byYear := make(map[int]float64)
	for _, p := range payments {
		if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
			continue
		}
		byYear[p.Date.Year()] += p.Amount
	}
	if len(byYear) == 0 {
		return nil
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > dividendYears {
		years = years[:dividendYears]
	}

	annual := make([]float64, len(years))
	for i, y := range years {
		annual[i] = round(byYear[y], 4)
	}

	n := float64(len(annual))
	dt := &model.DividendTrends{AnnualDividends: annual, Years: &n}
	if len(annual) >= 2 {
		newest, oldest := annual[0], annual[len(annual)-1]
		span := float64(years[0] - years[len(years)-1])
		if oldest > 0 && span > 0 {
			dt.DividendCAGR = finite(round(math.Pow(newest/oldest, 1/span)-1, 4))
		}
	}
	return dt
}
