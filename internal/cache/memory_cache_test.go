package cache

import (
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
)

func newTestCache(ttl time.Duration, clock *time.Time) *MemoryCache {
	c := NewMemoryCache(ttl)
	c.now = func() time.Time { return *clock }
	return c
}

func TestSummariesExpireAfterTTL(t *testing.T) {
	clock := time.Date(2024, 7, 23, 14, 0, 0, 0, time.UTC)
	c := newTestCache(5*time.Minute, &clock)

	if _, ok := c.GetSummaries(); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.SetSummaries([]models.SummaryRow{{Ticker: "AAA", FinalDecision: models.SignalBuy}})
	got, ok := c.GetSummaries()
	if !ok || len(got) != 1 {
		t.Fatalf("expected hit with 1 row, got ok=%v len=%d", ok, len(got))
	}

	clock = clock.Add(6 * time.Minute)
	if _, ok := c.GetSummaries(); ok {
		t.Error("expected miss after TTL")
	}
}

func TestEmptySummaryListIsCached(t *testing.T) {
	clock := time.Now()
	c := newTestCache(time.Minute, &clock)

	c.SetSummaries(nil)
	got, ok := c.GetSummaries()
	if !ok {
		t.Fatal("expected an empty list to be a cache hit")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestIndicatorsExpireAtNextMarketUpdate(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	clock := time.Date(2024, 7, 23, 10, 0, 0, 0, ny) // Tuesday morning
	c := newTestCache(time.Minute, &clock)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC)
	c.SetIndicators("AAA", start, end, []models.IndicatorRow{{Ticker: "AAA", Date: end}})

	clock = time.Date(2024, 7, 23, 16, 0, 0, 0, ny)
	if _, ok := c.GetIndicators("AAA", start, end); !ok {
		t.Error("expected hit before the close")
	}
	if _, ok := c.GetIndicators("AAA", start, time.Time{}); ok {
		t.Error("different range must not share an entry")
	}

	clock = time.Date(2024, 7, 23, 16, 31, 0, 0, ny)
	if _, ok := c.GetIndicators("AAA", start, end); ok {
		t.Error("expected miss after the next market update")
	}
}

func TestClear(t *testing.T) {
	clock := time.Now()
	c := newTestCache(time.Hour, &clock)
	c.SetSummaries([]models.SummaryRow{{Ticker: "AAA"}})
	c.SetIndicators("AAA", time.Time{}, time.Time{}, nil)

	c.Clear()

	if _, ok := c.GetSummaries(); ok {
		t.Error("summaries survived Clear")
	}
	if _, ok := c.GetIndicators("AAA", time.Time{}, time.Time{}); ok {
		t.Error("indicators survived Clear")
	}
}
