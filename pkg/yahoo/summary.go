package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-cli/internal/resilience"
)

const (
	defaultSummaryBaseURL = "https://query2.finance.yahoo.com"
	defaultCookieURL      = "https://fc.yahoo.com"
	userAgent             = "Mozilla/5.0 (compatible; equity-cli)"
	maxResponseBytes      = 4 << 20
)

// summaryModules are the quoteSummary modules requested for fundamentals.
var summaryModules = []string{"financialData", "defaultKeyStatistics", "summaryDetail"}

// Summary holds the fundamentals from Yahoo's quoteSummary endpoint. Nil
// fields were not reported; a reported zero is kept.
type Summary struct {
	Symbol            string
	CurrentPrice      *float64
	MarketCap         *float64
	TrailingPE        *float64
	ForwardPE         *float64
	PEGRatio          *float64
	DividendYield     *float64
	PayoutRatio       *float64
	RevenueGrowth     *float64
	ProfitMargins     *float64
	DebtToEquity      *float64
	FreeCashFlow      *float64
	OperatingCashflow *float64
	ReturnOnEquity    *float64
	ReturnOnAssets    *float64
}

// Summary fetches financialData, defaultKeyStatistics and summaryDetail for
// symbol. The endpoint needs a session cookie and crumb, which are fetched
// on first use and refreshed once when rejected.
func (c *sdkClient) Summary(ctx context.Context, symbol string) (*Summary, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, eris.New("yahoo: empty symbol")
	}

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetchSummary(ctx, symbol)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: summary %s", symbol)
	}
	return parseSummary(symbol, body)
}

func (c *sdkClient) fetchSummary(ctx context.Context, symbol string) ([]byte, error) {
	crumb, err := c.crumb(ctx, false)
	if err != nil {
		return nil, err
	}

	body, status, err := c.get(ctx, c.summaryURL(symbol, crumb))
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if crumb, err = c.crumb(ctx, true); err != nil {
			return nil, err
		}
		if body, status, err = c.get(ctx, c.summaryURL(symbol, crumb)); err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusOK:
		return body, nil
	case status == http.StatusNotFound:
		return nil, eris.Errorf("yahoo: no summary for %s: %s", symbol, summaryError(body))
	default:
		statusErr := eris.Errorf("yahoo: quoteSummary: unexpected status %d", status)
		if resilience.IsTransientHTTPStatus(status) {
			return nil, resilience.NewTransientError(statusErr, status)
		}
		return nil, statusErr
	}
}

func (c *sdkClient) summaryURL(symbol, crumb string) string {
	q := url.Values{}
	q.Set("modules", strings.Join(summaryModules, ","))
	q.Set("crumb", crumb)
	return c.summaryBaseURL + "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?" + q.Encode()
}

// crumb returns the cached crumb, fetching a new session when there is none
// or refresh is set.
func (c *sdkClient) crumb(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumbValue != "" && !refresh {
		return c.crumbValue, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie.
	if _, _, err := c.get(ctx, c.cookieURL); err != nil {
		return "", err
	}

	body, status, err := c.get(ctx, c.summaryBaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" {
		crumbErr := eris.Errorf("yahoo: crumb: unexpected status %d", status)
		if resilience.IsTransientHTTPStatus(status) {
			return "", resilience.NewTransientError(crumbErr, status)
		}
		return "", crumbErr
	}
	c.crumbValue = crumb
	return crumb, nil
}

func (c *sdkClient) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "yahoo: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, eris.Wrap(err, "yahoo: request")
		}
		return nil, 0, resilience.NewTransientError(eris.Wrap(err, "yahoo: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, resilience.NewTransientError(eris.Wrap(err, "yahoo: read response body"), 0)
	}
	return body, resp.StatusCode, nil
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func summaryError(body []byte) string {
	var resp summaryResponse
	if json.Unmarshal(body, &resp) == nil && resp.QuoteSummary.Error != nil {
		return resp.QuoteSummary.Error.Description
	}
	return "not found"
}

// parseSummary maps the module fields. Each numeric field is an object
// with a "raw" value; an empty object means not reported.
func parseSummary(symbol string, body []byte) (*Summary, error) {
	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "yahoo: decode summary %s", symbol)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, eris.Errorf("yahoo: summary %s: %s", symbol, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, eris.Errorf("yahoo: no summary for %s", symbol)
	}

	modules := resp.QuoteSummary.Result[0]
	fin := modules["financialData"]
	stats := modules["defaultKeyStatistics"]
	detail := modules["summaryDetail"]

	return &Summary{
		Symbol:            symbol,
		CurrentPrice:      rawNumber(fin, "currentPrice"),
		MarketCap:         rawNumber(detail, "marketCap"),
		TrailingPE:        rawNumber(detail, "trailingPE"),
		ForwardPE:         firstOf(rawNumber(detail, "forwardPE"), rawNumber(stats, "forwardPE")),
		PEGRatio:          rawNumber(stats, "pegRatio"),
		DividendYield:     rawNumber(detail, "dividendYield"),
		PayoutRatio:       rawNumber(detail, "payoutRatio"),
		RevenueGrowth:     rawNumber(fin, "revenueGrowth"),
		ProfitMargins:     firstOf(rawNumber(fin, "profitMargins"), rawNumber(stats, "profitMargins")),
		DebtToEquity:      rawNumber(fin, "debtToEquity"),
		FreeCashFlow:      rawNumber(fin, "freeCashflow"),
		OperatingCashflow: rawNumber(fin, "operatingCashflow"),
		ReturnOnEquity:    rawNumber(fin, "returnOnEquity"),
		ReturnOnAssets:    rawNumber(fin, "returnOnAssets"),
	}, nil
}

func rawNumber(module map[string]json.RawMessage, field string) *float64 {
	data, ok := module[field]
	if !ok {
		return nil
	}
	var v struct {
		Raw *float64 `json:"raw"`
	}
	if json.Unmarshal(data, &v) != nil || v.Raw == nil {
		return nil
	}
	if math.IsNaN(*v.Raw) || math.IsInf(*v.Raw, 0) {
		return nil
	}
	return v.Raw
}

func firstOf(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
