package alphavantage

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Overview is the OVERVIEW response. Alpha Vantage returns every field as a
// string, so values are kept raw and parsed on access.
type Overview struct {
	Symbol string
	Fields map[string]string
}

// Number parses a numeric overview field. Placeholders and unparseable
// values report false.
func (o *Overview) Number(field string) (float64, bool) {
	if o == nil {
		return 0, false
	}
	return parseNumber(o.Fields[field])
}

// Text returns a non-placeholder string field.
func (o *Overview) Text(field string) (string, bool) {
	if o == nil {
		return "", false
	}
	s := strings.TrimSpace(o.Fields[field])
	if isPlaceholder(s) {
		return "", false
	}
	return s, true
}

// Report is one annual or quarterly statement.
type Report map[string]string

// FiscalDate returns the fiscalDateEnding of the report.
func (r Report) FiscalDate() (time.Time, bool) {
	t, err := time.Parse("2006-01-02", r["fiscalDateEnding"])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Number parses a numeric statement field.
func (r Report) Number(field string) (float64, bool) {
	return parseNumber(r[field])
}

// Statement is an INCOME_STATEMENT, BALANCE_SHEET or CASH_FLOW response.
// Reports are sorted newest first.
type Statement struct {
	Symbol    string   `json:"symbol"`
	Annual    []Report `json:"annualReports"`
	Quarterly []Report `json:"quarterlyReports"`
}

// LatestQuarter returns the newest quarterly report, if any.
func (s *Statement) LatestQuarter() (Report, bool) {
	if s == nil || len(s.Quarterly) == 0 {
		return nil, false
	}
	return s.Quarterly[0], true
}

// LatestAnnual returns the newest annual report, if any.
func (s *Statement) LatestAnnual() (Report, bool) {
	if s == nil || len(s.Annual) == 0 {
		return nil, false
	}
	return s.Annual[0], true
}

// Dividend is one ex-dividend event.
type Dividend struct {
	ExDate time.Time
	Amount float64
}

func (c *httpClient) Overview(ctx context.Context, symbol string) (*Overview, error) {
	body, err := c.query(ctx, "OVERVIEW", symbol)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "alphavantage: decode overview")
	}
	if len(raw) == 0 {
		return nil, &APIError{Function: "OVERVIEW", Message: "no data for symbol " + symbol}
	}

	o := &Overview{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			o.Fields[k] = s
		}
	}
	o.Symbol = o.Fields["Symbol"]
	return o, nil
}

func (c *httpClient) IncomeStatement(ctx context.Context, symbol string) (*Statement, error) {
	return c.statement(ctx, "INCOME_STATEMENT", symbol)
}

func (c *httpClient) BalanceSheet(ctx context.Context, symbol string) (*Statement, error) {
	return c.statement(ctx, "BALANCE_SHEET", symbol)
}

func (c *httpClient) CashFlow(ctx context.Context, symbol string) (*Statement, error) {
	return c.statement(ctx, "CASH_FLOW", symbol)
}

func (c *httpClient) statement(ctx context.Context, function, symbol string) (*Statement, error) {
	body, err := c.query(ctx, function, symbol)
	if err != nil {
		return nil, err
	}

	var st Statement
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, eris.Wrapf(err, "alphavantage: decode %s", strings.ToLower(function))
	}
	sortReports(st.Annual)
	sortReports(st.Quarterly)
	return &st, nil
}

func (c *httpClient) Dividends(ctx context.Context, symbol string) ([]Dividend, error) {
	body, err := c.query(ctx, "DIVIDENDS", symbol)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			ExDividendDate string `json:"ex_dividend_date"`
			Amount         string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "alphavantage: decode dividends")
	}

	divs := make([]Dividend, 0, len(resp.Data))
	for _, d := range resp.Data {
		ex, err := time.Parse("2006-01-02", d.ExDividendDate)
		if err != nil {
			continue
		}
		amount, ok := parseNumber(d.Amount)
		if !ok {
			continue
		}
		divs = append(divs, Dividend{ExDate: ex, Amount: amount})
	}
	sort.SliceStable(divs, func(i, j int) bool { return divs[i].ExDate.After(divs[j].ExDate) })
	return divs, nil
}

func sortReports(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i]["fiscalDateEnding"] > reports[j]["fiscalDateEnding"]
	})
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "-", "null", "n/a":
		return true
	}
	return false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if isPlaceholder(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
