// Package collect gathers the primary (Yahoo Finance) and secondary (Alpha
// Vantage) metric records for a ticker.
package collect

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/pkg/alphavantage"
	"github.com/sells-group/equity-cli/pkg/yahoo"
)

// SecondaryName labels the secondary source in reports.
const SecondaryName = "Alpha Vantage"

// DefaultHistoryDays covers the 200-session average and a one-year return.
const DefaultHistoryDays = 400

// Sources is the collected input to validation.
type Sources struct {
	Primary   model.Record
	Secondary model.SourceRecord
}

// Collector fetches both sources for a ticker.
type Collector struct {
	yahoo       yahoo.Client
	av          alphavantage.Client
	historyDays int
	now         func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithHistoryDays sets how many calendar days of bars to fetch.
func WithHistoryDays(days int) Option {
	return func(c *Collector) {
		if days > 0 {
			c.historyDays = days
		}
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// New creates a Collector. av may be nil, in which case the secondary source
// is always unavailable.
func New(y yahoo.Client, av alphavantage.Client, opts ...Option) *Collector {
	c := &Collector{
		yahoo:       y,
		av:          av,
		historyDays: DefaultHistoryDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches the Yahoo quote, quote summary and price history alongside
// the Alpha Vantage overview, statements and dividends. Only a failed quote
// is an error; other failures drop the affected metrics, and a failed
// overview marks the secondary source unavailable.
func (c *Collector) Collect(ctx context.Context, ticker string) (*Sources, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, eris.New("collect: empty ticker")
	}
	log := zap.L().With(zap.String("ticker", ticker))

	var (
		quote   *yahoo.Quote
		summary *yahoo.Summary
		bars    []yahoo.Bar
		av      avData
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q, err := c.yahoo.Quote(gCtx, ticker)
		if err != nil {
			return eris.Wrapf(err, "collect: primary quote %s", ticker)
		}
		quote = q
		return nil
	})

	g.Go(func() error {
		s, err := c.yahoo.Summary(gCtx, ticker)
		if err != nil {
			log.Warn("collect: quote summary unavailable", zap.Error(err))
			return nil
		}
		summary = s
		return nil
	})

	g.Go(func() error {
		end := c.now().UTC()
		start := end.AddDate(0, 0, -c.historyDays)
		b, err := c.yahoo.History(gCtx, ticker, start, end)
		if err != nil {
			log.Warn("collect: price history unavailable", zap.Error(err))
			return nil
		}
		bars = b
		return nil
	})

	g.Go(func() error {
		av = c.fetchAlphaVantage(gCtx, ticker, log)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	primary := primaryFundamentals(quote, summary, bars, av)
	sources := &Sources{Primary: primary.Record()}
	if av.overviewErr != nil {
		sources.Secondary = model.Unavailable(SecondaryName, av.overviewErr)
	} else {
		sources.Secondary = model.NewSource(SecondaryName, secondaryFundamentals(av).Record())
	}

	log.Info("collect: sources gathered",
		zap.Int("primary_metrics", sources.Primary.Len()),
		zap.Int("bars", len(bars)),
		zap.String("secondary_status", string(sources.Secondary.Status)),
	)
	return sources, nil
}

// avData is everything fetched from Alpha Vantage. Statement fields are nil
// when their request failed.
type avData struct {
	overview    *alphavantage.Overview
	overviewErr error
	income      *alphavantage.Statement
	balance     *alphavantage.Statement
	cash        *alphavantage.Statement
	dividends   []alphavantage.Dividend
}

// fetchAlphaVantage runs the requests in sequence behind the client's rate
// limiter. Statement requests are skipped when the overview fails.
func (c *Collector) fetchAlphaVantage(ctx context.Context, ticker string, log *zap.Logger) avData {
	var d avData
	if c.av == nil {
		d.overviewErr = eris.New("collect: alpha vantage not configured")
		return d
	}

	d.overview, d.overviewErr = c.av.Overview(ctx, ticker)
	if d.overviewErr != nil {
		log.Warn("collect: secondary source unavailable", zap.Error(d.overviewErr))
		return d
	}

	var err error
	if d.income, err = c.av.IncomeStatement(ctx, ticker); err != nil {
		log.Warn("collect: income statement unavailable", zap.Error(err))
	}
	if d.balance, err = c.av.BalanceSheet(ctx, ticker); err != nil {
		log.Warn("collect: balance sheet unavailable", zap.Error(err))
	}
	if d.cash, err = c.av.CashFlow(ctx, ticker); err != nil {
		log.Warn("collect: cash flow unavailable", zap.Error(err))
	}
	if d.dividends, err = c.av.Dividends(ctx, ticker); err != nil {
		log.Warn("collect: dividends unavailable", zap.Error(err))
	}
	return d
}
