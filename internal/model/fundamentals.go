package model

// Fundamentals is the statically-typed view of a metric record for the
// default vocabulary. Nil fields are missing.
type Fundamentals struct {
	// Critical.
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	ProfitMargins  *float64 `json:"profit_margins,omitempty"`
	TrailingPE     *float64 `json:"trailing_pe,omitempty"`
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	FreeCashFlow   *float64 `json:"free_cash_flow,omitempty"`
	ReturnOnEquity *float64 `json:"return_on_equity,omitempty"`

	// Optional.
	ForwardPE         *float64 `json:"forward_pe,omitempty"`
	PEGRatio          *float64 `json:"peg_ratio,omitempty"`
	DividendYield     *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio       *float64 `json:"payout_ratio,omitempty"`
	ReturnOnAssets    *float64 `json:"return_on_assets,omitempty"`
	OperatingCashflow *float64 `json:"operating_cashflow,omitempty"`

	// Advanced.
	Technicals      *Technicals      `json:"technicals,omitempty"`
	RiskMetrics     *RiskMetrics     `json:"risk_metrics,omitempty"`
	FinancialTrends *FinancialTrends `json:"financial_trends,omitempty"`
	VolumeTrends    *VolumeTrends    `json:"volume_trends,omitempty"`
	DividendTrends  *DividendTrends  `json:"dividend_trends,omitempty"`
}

// Technicals holds price-derived technical indicators.
type Technicals struct {
	LastClose     *float64 `json:"last_close,omitempty"`
	SMA50         *float64 `json:"sma_50,omitempty"`
	SMA200        *float64 `json:"sma_200,omitempty"`
	RSI14         *float64 `json:"rsi_14,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	Trend         string   `json:"trend,omitempty"`
}

// RiskMetrics holds return-distribution statistics.
type RiskMetrics struct {
	Volatility  *float64 `json:"volatility,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`
	Return1Y    *float64 `json:"return_1y,omitempty"`
}

// FinancialTrends holds quarterly statement series, newest first.
type FinancialTrends struct {
	Revenue            []float64 `json:"revenue,omitempty"`
	NetIncome          []float64 `json:"net_income,omitempty"`
	RevenueGrowthQoQ   *float64  `json:"revenue_growth_qoq,omitempty"`
	RevenueGrowthYoY   *float64  `json:"revenue_growth_yoy,omitempty"`
	NetIncomeGrowthYoY *float64  `json:"net_income_growth_yoy,omitempty"`
}

// VolumeTrends holds trading-volume averages.
type VolumeTrends struct {
	LatestVolume *float64 `json:"latest_volume,omitempty"`
	AvgVolume10  *float64 `json:"avg_volume_10d,omitempty"`
	AvgVolume50  *float64 `json:"avg_volume_50d,omitempty"`
	AvgVolume200 *float64 `json:"avg_volume_200d,omitempty"`
	VolumeSpike  *bool    `json:"volume_spike,omitempty"`
	Trend        string   `json:"trend,omitempty"`
}

// DividendTrends holds annual dividend totals, newest year first.
type DividendTrends struct {
	AnnualDividends []float64 `json:"annual_dividends,omitempty"`
	DividendCAGR    *float64  `json:"dividend_cagr,omitempty"`
	Years           *float64  `json:"years,omitempty"`
}

type scalarRef struct {
	key string
	ptr **float64
}

func (f *Fundamentals) scalars() []scalarRef {
	return []scalarRef{
		{KeyCurrentPrice, &f.CurrentPrice},
		{KeyMarketCap, &f.MarketCap},
		{KeyRevenueGrowth, &f.RevenueGrowth},
		{KeyProfitMargins, &f.ProfitMargins},
		{KeyTrailingPE, &f.TrailingPE},
		{KeyDebtToEquity, &f.DebtToEquity},
		{KeyFreeCashFlow, &f.FreeCashFlow},
		{KeyReturnOnEquity, &f.ReturnOnEquity},
		{KeyForwardPE, &f.ForwardPE},
		{KeyPEGRatio, &f.PEGRatio},
		{KeyDividendYield, &f.DividendYield},
		{KeyPayoutRatio, &f.PayoutRatio},
		{KeyReturnOnAssets, &f.ReturnOnAssets},
		{KeyOperatingCashflow, &f.OperatingCashflow},
	}
}

// Record converts f into a metric record. Missing scalars are omitted and
// bundles with no populated field are omitted.
func (f Fundamentals) Record() Record {
	values := make(map[string]Value)
	for _, s := range f.scalars() {
		if v := NumberPtr(*s.ptr); !v.IsNull() {
			values[s.key] = v
		}
	}
	if f.Technicals != nil {
		putBundle(values, KeyTechnicals, f.Technicals.fields())
	}
	if f.RiskMetrics != nil {
		putBundle(values, KeyRiskMetrics, f.RiskMetrics.fields())
	}
	if f.FinancialTrends != nil {
		putBundle(values, KeyFinancialTrends, f.FinancialTrends.fields())
	}
	if f.VolumeTrends != nil {
		putBundle(values, KeyVolumeTrends, f.VolumeTrends.fields())
	}
	if f.DividendTrends != nil {
		putBundle(values, KeyDividendTrends, f.DividendTrends.fields())
	}
	return Record{values: values}
}

// FundamentalsFromRecord reads the default-vocabulary metrics out of r.
// Values of the wrong shape are treated as missing.
func FundamentalsFromRecord(r Record) Fundamentals {
	var f Fundamentals
	for _, s := range f.scalars() {
		*s.ptr = floatPtr(r.Get(s.key))
	}
	if b := r.Get(KeyTechnicals); b.Available() && b.Kind() == KindBundle {
		f.Technicals = &Technicals{
			LastClose:     floatPtr(b.Field("last_close")),
			SMA50:         floatPtr(b.Field("sma_50")),
			SMA200:        floatPtr(b.Field("sma_200")),
			RSI14:         floatPtr(b.Field("rsi_14")),
			MACD:          floatPtr(b.Field("macd")),
			MACDSignal:    floatPtr(b.Field("macd_signal")),
			MACDHistogram: floatPtr(b.Field("macd_histogram")),
			Trend:         text(b.Field("trend")),
		}
	}
	if b := r.Get(KeyRiskMetrics); b.Available() && b.Kind() == KindBundle {
		f.RiskMetrics = &RiskMetrics{
			Volatility:  floatPtr(b.Field("volatility")),
			MaxDrawdown: floatPtr(b.Field("max_drawdown")),
			SharpeRatio: floatPtr(b.Field("sharpe_ratio")),
			Return1Y:    floatPtr(b.Field("return_1y")),
		}
	}
	if b := r.Get(KeyFinancialTrends); b.Available() && b.Kind() == KindBundle {
		f.FinancialTrends = &FinancialTrends{
			Revenue:            floats(b.Field("revenue")),
			NetIncome:          floats(b.Field("net_income")),
			RevenueGrowthQoQ:   floatPtr(b.Field("revenue_growth_qoq")),
			RevenueGrowthYoY:   floatPtr(b.Field("revenue_growth_yoy")),
			NetIncomeGrowthYoY: floatPtr(b.Field("net_income_growth_yoy")),
		}
	}
	if b := r.Get(KeyVolumeTrends); b.Available() && b.Kind() == KindBundle {
		vt := &VolumeTrends{
			LatestVolume: floatPtr(b.Field("latest_volume")),
			AvgVolume10:  floatPtr(b.Field("avg_volume_10d")),
			AvgVolume50:  floatPtr(b.Field("avg_volume_50d")),
			AvgVolume200: floatPtr(b.Field("avg_volume_200d")),
			Trend:        text(b.Field("trend")),
		}
		if spike, ok := b.Field("volume_spike").Flag(); ok {
			vt.VolumeSpike = &spike
		}
		f.VolumeTrends = vt
	}
	if b := r.Get(KeyDividendTrends); b.Available() && b.Kind() == KindBundle {
		f.DividendTrends = &DividendTrends{
			AnnualDividends: floats(b.Field("annual_dividends")),
			DividendCAGR:    floatPtr(b.Field("dividend_cagr")),
			Years:           floatPtr(b.Field("years")),
		}
	}
	return f
}

func (t *Technicals) fields() map[string]Value {
	return map[string]Value{
		"last_close":     NumberPtr(t.LastClose),
		"sma_50":         NumberPtr(t.SMA50),
		"sma_200":        NumberPtr(t.SMA200),
		"rsi_14":         NumberPtr(t.RSI14),
		"macd":           NumberPtr(t.MACD),
		"macd_signal":    NumberPtr(t.MACDSignal),
		"macd_histogram": NumberPtr(t.MACDHistogram),
		"trend":          optText(t.Trend),
	}
}

func (r *RiskMetrics) fields() map[string]Value {
	return map[string]Value{
		"volatility":   NumberPtr(r.Volatility),
		"max_drawdown": NumberPtr(r.MaxDrawdown),
		"sharpe_ratio": NumberPtr(r.SharpeRatio),
		"return_1y":    NumberPtr(r.Return1Y),
	}
}

func (ft *FinancialTrends) fields() map[string]Value {
	return map[string]Value{
		"revenue":               optSeries(ft.Revenue),
		"net_income":            optSeries(ft.NetIncome),
		"revenue_growth_qoq":    NumberPtr(ft.RevenueGrowthQoQ),
		"revenue_growth_yoy":    NumberPtr(ft.RevenueGrowthYoY),
		"net_income_growth_yoy": NumberPtr(ft.NetIncomeGrowthYoY),
	}
}

func (vt *VolumeTrends) fields() map[string]Value {
	spike := Null()
	if vt.VolumeSpike != nil {
		spike = Bool(*vt.VolumeSpike)
	}
	return map[string]Value{
		"latest_volume":   NumberPtr(vt.LatestVolume),
		"avg_volume_10d":  NumberPtr(vt.AvgVolume10),
		"avg_volume_50d":  NumberPtr(vt.AvgVolume50),
		"avg_volume_200d": NumberPtr(vt.AvgVolume200),
		"volume_spike":    spike,
		"trend":           optText(vt.Trend),
	}
}

func (dt *DividendTrends) fields() map[string]Value {
	return map[string]Value{
		"annual_dividends": optSeries(dt.AnnualDividends),
		"dividend_cagr":    NumberPtr(dt.DividendCAGR),
		"years":            NumberPtr(dt.Years),
	}
}

// putBundle stores the non-null fields as a bundle, skipping bundles with
// nothing available.
func putBundle(values map[string]Value, key string, fields map[string]Value) {
	kept := make(map[string]Value, len(fields))
	for k, v := range fields {
		if v.Available() {
			kept[k] = v
		}
	}
	if len(kept) == 0 {
		return
	}
	values[key] = Value{kind: KindBundle, bundle: kept}
}

func floatPtr(v Value) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

func floats(v Value) []float64 {
	items := v.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := item.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

func text(v Value) string {
	s, _ := v.Str()
	return s
}

func optText(s string) Value {
	if s == "" {
		return Null()
	}
	return Text(s)
}

func optSeries(nums []float64) Value {
	if len(nums) == 0 {
		return Null()
	}
	return NumberSeries(nums...)
}

// Float is a helper returning a pointer to f.
func Float(f float64) *float64 { return &f }
