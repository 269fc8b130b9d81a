package collect

import (
	"github.com/sells-group/equity-cli/internal/indicators"
	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/pkg/alphavantage"
	"github.com/sells-group/equity-cli/pkg/yahoo"
)

// primaryFundamentals combines the Yahoo quote and quote summary with the
// bar-derived bundles and the statement-derived trend bundles. Quote fields
// win over the summary when both report them.
func primaryFundamentals(q *yahoo.Quote, s *yahoo.Summary, bars []yahoo.Bar, av avData) model.Fundamentals {
	var f model.Fundamentals
	if s != nil {
		f.CurrentPrice = s.CurrentPrice
		f.MarketCap = s.MarketCap
		f.TrailingPE = s.TrailingPE
		f.ForwardPE = s.ForwardPE
		f.DividendYield = s.DividendYield
		f.PEGRatio = s.PEGRatio
		f.PayoutRatio = s.PayoutRatio
		f.RevenueGrowth = s.RevenueGrowth
		f.ProfitMargins = s.ProfitMargins
		f.DebtToEquity = s.DebtToEquity
		f.FreeCashFlow = s.FreeCashFlow
		f.OperatingCashflow = s.OperatingCashflow
		f.ReturnOnEquity = s.ReturnOnEquity
		f.ReturnOnAssets = s.ReturnOnAssets
	}
	if q != nil {
		f.CurrentPrice = firstOf(q.Price, f.CurrentPrice)
		f.MarketCap = firstOf(q.MarketCap, f.MarketCap)
		f.TrailingPE = firstOf(q.TrailingPE, f.TrailingPE)
		f.ForwardPE = firstOf(q.ForwardPE, f.ForwardPE)
		f.DividendYield = firstOf(q.DividendYield, f.DividendYield)
	}

	if len(bars) > 0 {
		closes := yahoo.Closes(bars)
		f.Technicals = indicators.Technicals(closes)
		f.RiskMetrics = indicators.RiskMetrics(closes)
		f.VolumeTrends = indicators.VolumeTrends(yahoo.Volumes(bars))
	}

	if av.income != nil {
		f.FinancialTrends = indicators.FinancialTrends(quarters(av.income))
	}
	if len(av.dividends) > 0 {
		f.DividendTrends = indicators.DividendTrends(payments(av.dividends))
	}
	return f
}

// overviewFields maps Alpha Vantage overview fields to metric keys. The
// first reported field wins.
var overviewFields = []struct {
	key    string
	fields []string
}{
	{model.KeyMarketCap, []string{"MarketCapitalization"}},
	{model.KeyTrailingPE, []string{"TrailingPE", "PERatio"}},
	{model.KeyForwardPE, []string{"ForwardPE"}},
	{model.KeyPEGRatio, []string{"PEGRatio"}},
	{model.KeyProfitMargins, []string{"ProfitMargin"}},
	{model.KeyRevenueGrowth, []string{"QuarterlyRevenueGrowthYOY"}},
	{model.KeyReturnOnEquity, []string{"ReturnOnEquityTTM"}},
	{model.KeyReturnOnAssets, []string{"ReturnOnAssetsTTM"}},
	{model.KeyDividendYield, []string{"DividendYield"}},
}

// secondaryFundamentals maps the overview and derives cash flow and leverage
// figures from the latest statements.
func secondaryFundamentals(av avData) model.Fundamentals {
	var f model.Fundamentals
	ptrs := map[string]**float64{
		model.KeyMarketCap:      &f.MarketCap,
		model.KeyTrailingPE:     &f.TrailingPE,
		model.KeyForwardPE:      &f.ForwardPE,
		model.KeyPEGRatio:       &f.PEGRatio,
		model.KeyProfitMargins:  &f.ProfitMargins,
		model.KeyRevenueGrowth:  &f.RevenueGrowth,
		model.KeyReturnOnEquity: &f.ReturnOnEquity,
		model.KeyReturnOnAssets: &f.ReturnOnAssets,
		model.KeyDividendYield:  &f.DividendYield,
	}
	for _, m := range overviewFields {
		for _, field := range m.fields {
			if v, ok := av.overview.Number(field); ok {
				*ptrs[m.key] = model.Float(v)
				break
			}
		}
	}

	if dps, ok := av.overview.Number("DividendPerShare"); ok {
		if eps, ok := av.overview.Number("EPS"); ok && eps > 0 {
			f.PayoutRatio = model.Float(dps / eps)
		}
	}

	if ocf, capex, ok := trailingCashFlow(av.cash); ok {
		f.OperatingCashflow = model.Float(ocf)
		f.FreeCashFlow = model.Float(ocf - capex)
	}
	f.DebtToEquity = debtToEquity(av.balance)
	return f
}

// trailingCashFlow sums operating cash flow and capital expenditures over
// the latest four quarters, falling back to the latest annual report.
// Alpha Vantage reports capex as a positive outflow.
func trailingCashFlow(st *alphavantage.Statement) (ocf, capex float64, ok bool) {
	if st == nil {
		return 0, 0, false
	}
	if len(st.Quarterly) >= 4 {
		complete := true
		for _, r := range st.Quarterly[:4] {
			o, ok1 := r.Number("operatingCashflow")
			c, ok2 := r.Number("capitalExpenditures")
			if !ok1 || !ok2 {
				complete = false
				break
			}
			ocf += o
			capex += c
		}
		if complete {
			return ocf, capex, true
		}
	}

	r, found := st.LatestAnnual()
	if !found {
		return 0, 0, false
	}
	o, ok1 := r.Number("operatingCashflow")
	c, ok2 := r.Number("capitalExpenditures")
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return o, c, true
}

// debtToEquity is total debt over shareholder equity as a percentage, from
// the latest quarterly balance sheet or else the latest annual one.
func debtToEquity(st *alphavantage.Statement) *float64 {
	if st == nil {
		return nil
	}
	r, ok := st.LatestQuarter()
	if !ok {
		if r, ok = st.LatestAnnual(); !ok {
			return nil
		}
	}

	equity, ok := r.Number("totalShareholderEquity")
	if !ok || equity <= 0 {
		return nil
	}
	debt, ok := r.Number("shortLongTermDebtTotal")
	if !ok {
		short, okShort := r.Number("shortTermDebt")
		long, okLong := r.Number("longTermDebt")
		if !okShort && !okLong {
			return nil
		}
		debt = short + long
	}
	return model.Float(debt / equity * 100)
}

func firstOf(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func quarters(st *alphavantage.Statement) []indicators.Quarter {
	out := make([]indicators.Quarter, 0, len(st.Quarterly))
	for _, r := range st.Quarterly {
		date, ok := r.FiscalDate()
		if !ok {
			continue
		}
		q := indicators.Quarter{FiscalDate: date}
		if v, ok := r.Number("totalRevenue"); ok {
			q.Revenue = model.Float(v)
		}
		if v, ok := r.Number("netIncome"); ok {
			q.NetIncome = model.Float(v)
		}
		out = append(out, q)
	}
	return out
}

func payments(divs []alphavantage.Dividend) []indicators.Payment {
	out := make([]indicators.Payment, len(divs))
	for i, d := range divs {
		out[i] = indicators.Payment{Date: d.ExDate, Amount: d.Amount}
	}
	return out
}
