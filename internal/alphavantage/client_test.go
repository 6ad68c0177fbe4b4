package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const dailyJSON = `{
    "Meta Data": {"2. Symbol": "AAA"},
    "Time Series (Daily)": {
        "2024-01-03": {"1. open": "11.0", "2. high": "12.5", "3. low": "10.5", "4. close": "12.0", "5. volume": "2000"},
        "2024-01-02": {"1. open": "10.0", "2. high": "11.0", "3. low": "9.5", "4. close": "10.5", "5. volume": "1000"},
        "bad-date": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}
    }
}`

const overviewJSON = `{
    "Symbol": "AAA",
    "Name": "Alpha Corp",
    "Sector": "TECHNOLOGY",
    "Industry": "SERVICES-PREPACKAGED SOFTWARE",
    "MarketCapitalization": "1500000000",
    "PERatio": "15.2",
    "ReturnOnEquityTTM": "0.21",
    "QuarterlyEarningsGrowthYOY": "0.12",
    "ProfitMargin": "0.3",
    "DividendYield": "None"
}`

// createMockServer answers by the "function" query parameter and counts requests
func createMockServer(t *testing.T, calls *int32, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body, ok := responses[r.URL.Query().Get("function")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient("test-key", WithBaseURL(url), WithRequestsPerMinute(0))
}

func TestGetDailyPrices(t *testing.T) {
	var calls int32
	srv := createMockServer(t, &calls, map[string]string{"TIME_SERIES_DAILY": dailyJSON})

	bars, err := newTestClient(srv.URL).GetDailyPrices(context.Background(), "AAA", "compact")
	if err != nil {
		t.Fatalf("GetDailyPrices failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2 (bad date skipped)", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars should be ordered oldest first")
	}
	if bars[0].Ticker != "AAA" || bars[0].Close != 10.5 || bars[1].Volume != 2000 {
		t.Errorf("unexpected bars: %+v", bars)
	}
}

func TestGetOverview(t *testing.T) {
	var calls int32
	srv := createMockServer(t, &calls, map[string]string{"OVERVIEW": overviewJSON})

	company, funds, err := newTestClient(srv.URL).GetOverview(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if company.Sector != "Technology" || company.Industry != "Services-prepackaged Software" {
		t.Errorf("company = %+v", company)
	}
	if funds.PER == nil || *funds.PER != 15.2 {
		t.Errorf("PER = %v, want 15.2", funds.PER)
	}
	if funds.MarketCap == nil || *funds.MarketCap != 1.5e9 {
		t.Errorf("MarketCap = %v, want 1.5e9", funds.MarketCap)
	}
	if funds.DividendYield != nil {
		t.Errorf("DividendYield = %v, want nil for None", *funds.DividendYield)
	}
	if funds.DebtToEquity != nil {
		t.Error("DebtToEquity should be absent")
	}
}

func TestAPIMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"error message", `{"Error Message": "Invalid API call."}`, ErrUnknownSymbol},
		{"rate note", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, ErrThrottled},
		{"information", `{"Information": "daily rate limit reached"}`, ErrThrottled},
		{"empty series", `{"Meta Data": {}}`, ErrUnknownSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := createMockServer(t, &calls, map[string]string{"TIME_SERIES_DAILY": tt.body, "OVERVIEW": tt.body})
			c := newTestClient(srv.URL)

			if _, err := c.GetDailyPrices(context.Background(), "ZZZ", "compact"); !errors.Is(err, tt.want) {
				t.Errorf("GetDailyPrices error = %v, want %v", err, tt.want)
			}
			if _, _, err := c.GetOverview(context.Background(), "ZZZ"); !errors.Is(err, tt.want) {
				t.Errorf("GetOverview error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	var calls int32
	srv := createMockServer(t, &calls, nil)
	c := NewClient("wrong-key", WithBaseURL(srv.URL), WithRequestsPerMinute(0))

	if _, err := c.GetDailyPrices(context.Background(), "AAA", "compact"); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestRateLimit_CancelledWait(t *testing.T) {
	var calls int32
	srv := createMockServer(t, &calls, map[string]string{"OVERVIEW": overviewJSON})
	c := NewClient("test-key", WithBaseURL(srv.URL), WithRequestsPerMinute(1))

	if _, _, err := c.GetOverview(context.Background(), "AAA"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	// the budget is spent; a cancelled context must not wait a minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.GetOverview(ctx, "AAA"); err == nil {
		t.Error("expected the cancelled wait to fail")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}
