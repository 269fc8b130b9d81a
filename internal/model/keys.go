package model

// Metric keys recognized by the default vocabulary.
const (
	// Critical tier.
	KeyCurrentPrice   = "current_price"
	KeyMarketCap      = "market_cap"
	KeyRevenueGrowth  = "revenue_growth"
	KeyProfitMargins  = "profit_margins"
	KeyTrailingPE     = "trailing_pe"
	KeyDebtToEquity   = "debt_to_equity"
	KeyFreeCashFlow   = "free_cash_flow"
	KeyReturnOnEquity = "return_on_equity"

	// Optional tier.
	KeyForwardPE         = "forward_pe"
	KeyPEGRatio          = "peg_ratio"
	KeyDividendYield     = "dividend_yield"
	KeyPayoutRatio       = "payout_ratio"
	KeyReturnOnAssets    = "return_on_assets"
	KeyOperatingCashflow = "operating_cashflow"

	// Advanced tier.
	KeyTechnicals      = "technicals"
	KeyRiskMetrics     = "risk_metrics"
	KeyFinancialTrends = "financial_trends"
	KeyVolumeTrends    = "volume_trends"
	KeyDividendTrends  = "dividend_trends"
)
