// Package yahoo adapts the finance-go Yahoo Finance SDK to quote and daily bar
// types with explicit missing values.
package yahoo

import (
	"context"
	"math"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/equity-cli/internal/resilience"
)

// Quote holds the quote fundamentals Yahoo reports for an equity.
// Nil fields were not reported.
type Quote struct {
	Symbol        string
	Name          string
	Currency      string
	Price         *float64
	MarketCap     *float64
	TrailingPE    *float64
	ForwardPE     *float64
	DividendYield *float64
	EPS           *float64
	BookValue     *float64
	Volume        *float64
}

// Bar is one daily OHLCV bar.
type Bar struct {
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	AdjClose decimal.Decimal
	Volume   int64
}

// Client defines the Yahoo Finance operations.
type Client interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	// History returns daily bars in [start, end], oldest first.
	History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
	Summary(ctx context.Context, symbol string) (*Summary, error)
}

// Option configures the Yahoo client.
type Option func(*sdkClient)

// WithRetry sets the retry policy for SDK calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *sdkClient) {
		c.retry = cfg
	}
}

// WithEquityFunc replaces the SDK quote lookup (for testing).
func WithEquityFunc(fn func(symbol string) (*finance.Equity, error)) Option {
	return func(c *sdkClient) {
		c.getEquity = fn
	}
}

// WithChartFunc replaces the SDK chart lookup (for testing).
func WithChartFunc(fn func(p *chart.Params) ([]*finance.ChartBar, error)) Option {
	return func(c *sdkClient) {
		c.getChart = fn
	}
}

// WithHTTPClient sets the HTTP client for quoteSummary requests. A cookie
// jar is added when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

// WithBaseURL points quoteSummary and the session cookie request at baseURL
// (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *sdkClient) {
		c.summaryBaseURL = strings.TrimRight(baseURL, "/")
		c.cookieURL = c.summaryBaseURL + "/"
	}
}

type sdkClient struct {
	retry     resilience.RetryConfig
	getEquity func(symbol string) (*finance.Equity, error)
	getChart  func(p *chart.Params) ([]*finance.ChartBar, error)

	http           *http.Client
	summaryBaseURL string
	cookieURL      string

	mu         sync.Mutex
	crumbValue string
}

// NewClient creates a Yahoo client backed by finance-go.
func NewClient(opts ...Option) Client {
	c := &sdkClient{
		retry:          resilience.DefaultRetryConfig(),
		getEquity:      equity.Get,
		getChart:       chartBars,
		http:           &http.Client{Timeout: 30 * time.Second},
		summaryBaseURL: defaultSummaryBaseURL,
		cookieURL:      defaultCookieURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		hc := *c.http
		hc.Jar, _ = cookiejar.New(nil)
		c.http = &hc
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("yahoo", "sdk")
	}
	return c
}

func chartBars(p *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(p)
	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	return bars, iter.Err()
}

func (c *sdkClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, eris.New("yahoo: empty symbol")
	}

	eq, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*finance.Equity, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return c.getEquity(symbol)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: quote %s", symbol)
	}
	if eq == nil {
		return nil, eris.Errorf("yahoo: no quote for %s", symbol)
	}
	return QuoteFromEquity(eq), nil
}

func (c *sdkClient) History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, eris.New("yahoo: empty symbol")
	}
	if !end.After(start) {
		return nil, eris.Errorf("yahoo: invalid range %s..%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	raw, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]*finance.ChartBar, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return c.getChart(params)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: history %s", symbol)
	}

	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		if bar, ok := BarFromChart(b); ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// QuoteFromEquity converts an SDK equity quote. The SDK reports missing
// numbers as zero, so zeros become nil.
func QuoteFromEquity(eq *finance.Equity) *Quote {
	q := &Quote{
		Symbol:        eq.Symbol,
		Name:          eq.ShortName,
		Currency:      eq.CurrencyID,
		Price:         present(eq.RegularMarketPrice),
		MarketCap:     present(float64(eq.MarketCap)),
		TrailingPE:    present(eq.TrailingPE),
		ForwardPE:     present(eq.ForwardPE),
		DividendYield: present(eq.TrailingAnnualDividendYield),
		EPS:           present(eq.EpsTrailingTwelveMonths),
		BookValue:     present(eq.BookValue),
		Volume:        present(float64(eq.RegularMarketVolume)),
	}
	if eq.LongName != "" {
		q.Name = eq.LongName
	}
	return q
}

// BarFromChart converts an SDK chart bar. Bars without a close are dropped.
func BarFromChart(b *finance.ChartBar) (Bar, bool) {
	if b == nil || b.Close.IsZero() {
		return Bar{}, false
	}
	adj := b.AdjClose
	if adj.IsZero() {
		adj = b.Close
	}
	return Bar{
		Date:     time.Unix(int64(b.Timestamp), 0).UTC(),
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		AdjClose: adj,
		Volume:   int64(b.Volume),
	}, true
}

// Closes returns the adjusted closes of bars as floats.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose.InexactFloat64()
	}
	return out
}

// Volumes returns the volumes of bars as floats.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

func present(f float64) *float64 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
