package metrics

import "github.com/sells-group/equity-cli/internal/model"

var defaultVocabulary = mustNew(map[Tier][]Metric{
	Critical: {
		{Key: model.KeyCurrentPrice, Label: "Current Price", Class: ClassCurrency,
			Aliases: []string{"currentPrice", "regularMarketPrice"}},
		{Key: model.KeyMarketCap, Label: "Market Cap", Class: ClassCurrency,
			Aliases: []string{"MarketCapitalization", "marketCap"}},
		{Key: model.KeyRevenueGrowth, Label: "Revenue Growth", Class: ClassRatio,
			Aliases: []string{"QuarterlyRevenueGrowthYOY", "revenueGrowth"}},
		{Key: model.KeyProfitMargins, Label: "Profit Margin", Class: ClassRatio,
			Aliases: []string{"ProfitMargin", "profitMargins"}},
		{Key: model.KeyTrailingPE, Label: "Trailing P/E", Class: ClassMultiple,
			Aliases: []string{"PERatio", "TrailingPE", "trailingPE"}},
		{Key: model.KeyDebtToEquity, Label: "Debt to Equity", Class: ClassLeverage,
			Aliases: []string{"DebtToEquity", "debtToEquity"}},
		{Key: model.KeyFreeCashFlow, Label: "Free Cash Flow", Class: ClassCurrency,
			Aliases: []string{"FreeCashFlow", "freeCashflow"}},
		{Key: model.KeyReturnOnEquity, Label: "Return on Equity", Class: ClassRatio,
			Aliases: []string{"ReturnOnEquityTTM", "returnOnEquity"}},
	},
	Optional: {
		{Key: model.KeyForwardPE, Label: "Forward P/E", Class: ClassMultiple,
			Aliases: []string{"ForwardPE", "forwardPE"}},
		{Key: model.KeyPEGRatio, Label: "PEG Ratio", Class: ClassMultiple,
			Aliases: []string{"PEGRatio", "pegRatio"}},
		{Key: model.KeyDividendYield, Label: "Dividend Yield", Class: ClassRatio,
			Aliases: []string{"DividendYield", "dividendYield"}},
		{Key: model.KeyPayoutRatio, Label: "Payout Ratio", Class: ClassRatio,
			Aliases: []string{"PayoutRatio", "payoutRatio"}},
		{Key: model.KeyReturnOnAssets, Label: "Return on Assets", Class: ClassRatio,
			Aliases: []string{"ReturnOnAssetsTTM", "returnOnAssets"}},
		{Key: model.KeyOperatingCashflow, Label: "Operating Cash Flow", Class: ClassCurrency,
			Aliases: []string{"OperatingCashflow", "operatingCashflow"}},
	},
	Advanced: {
		{Key: model.KeyTechnicals, Label: "Technical Indicators", Class: ClassBundle},
		{Key: model.KeyRiskMetrics, Label: "Risk Metrics", Class: ClassBundle},
		{Key: model.KeyFinancialTrends, Label: "Financial Trends", Class: ClassBundle},
		{Key: model.KeyVolumeTrends, Label: "Volume Trends", Class: ClassBundle},
		{Key: model.KeyDividendTrends, Label: "Dividend Trends", Class: ClassBundle},
	},
})

// Default returns the reference vocabulary of 8 critical, 6 optional and 5
// advanced metrics.
func Default() *Vocabulary { return defaultVocabulary }

func mustNew(tiers map[Tier][]Metric) *Vocabulary {
	v, err := New(tiers)
	if err != nil {
		panic(err)
	}
	return v
}
