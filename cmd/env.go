package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-cli/internal/collect"
	"github.com/sells-group/equity-cli/internal/db"
	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/resilience"
	"github.com/sells-group/equity-cli/internal/store"
	"github.com/sells-group/equity-cli/internal/validation"
	"github.com/sells-group/equity-cli/pkg/alphavantage"
	"github.com/sells-group/equity-cli/pkg/yahoo"
)

// sourceCollector gathers primary and secondary records for a ticker.
type sourceCollector interface {
	Collect(ctx context.Context, ticker string) (*collect.Sources, error)
}

// initStore opens and migrates the configured report store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "equity.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// initValidator builds a validator from the optional vocabulary and
// tolerance files.
func initValidator() (*validation.Validator, error) {
	opts := []validation.Option{
		validation.WithReviewOnLowConfidence(cfg.Validation.ReviewOnLowConfidence),
	}
	if path := cfg.Validation.VocabularyFile; path != "" {
		vocab, err := metrics.LoadVocabulary(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.WithVocabulary(vocab))
	}
	if path := cfg.Validation.TolerancesFile; path != "" {
		policy, err := metrics.LoadPolicy(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.WithPolicy(policy))
	}
	return validation.New(opts...), nil
}

// initCollector wires the Yahoo and Alpha Vantage clients. Without an API
// key the secondary source is reported unavailable.
func initCollector() *collect.Collector {
	var av alphavantage.Client
	if avCfg := cfg.AlphaVantage; avCfg.APIKey != "" {
		av = alphavantage.NewClient(avCfg.APIKey,
			alphavantage.WithBaseURL(avCfg.BaseURL),
			alphavantage.WithHTTPClient(&http.Client{Timeout: time.Duration(avCfg.TimeoutSecs) * time.Second}),
			alphavantage.WithRateLimit(avCfg.RequestsPerMinute),
			alphavantage.WithRetry(resilience.FromRetryConfig(avCfg.Retry)),
			alphavantage.WithCircuitBreaker(resilience.FromCircuitConfig("alphavantage", avCfg.Circuit)),
		)
	}

	return collect.New(yahoo.NewClient(), av, collect.WithHistoryDays(cfg.Yahoo.HistoryDays))
}
