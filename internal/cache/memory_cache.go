package cache

import (
	"sync"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/util"
)

// MemoryCache is an in-process cache for the read API.
// Summaries expire after a fixed TTL. Indicator series only change after a pipeline
// run, so they are kept until the next market update; Clear drops both after a run.
type MemoryCache struct {
	summaries   []models.SummaryRow
	summaryAt   time.Time
	summaryMu   sync.RWMutex
	summaryTTL  time.Duration
	indicators  map[string]indicatorEntry
	indicatorMu sync.RWMutex
	now         func() time.Time
}

type indicatorEntry struct {
	data      []models.IndicatorRow
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(summaryTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		indicators: make(map[string]indicatorEntry),
		summaryTTL: summaryTTL,
		now:        time.Now,
	}
}

// indicatorCacheKey generates a cache key for an indicator series request
func indicatorCacheKey(ticker string, startDate, endDate time.Time) string {
	return ticker + "|" + startDate.Format("2006-01-02") + "|" + endDate.Format("2006-01-02")
}

// GetSummaries retrieves the cached summary list if fresh
func (c *MemoryCache) GetSummaries() ([]models.SummaryRow, bool) {
	c.summaryMu.RLock()
	defer c.summaryMu.RUnlock()

	if c.summaries == nil {
		return nil, false
	}
	if c.now().Sub(c.summaryAt) > c.summaryTTL {
		return nil, false
	}
	return c.summaries, true
}

// SetSummaries caches the summary list
func (c *MemoryCache) SetSummaries(rows []models.SummaryRow) {
	c.summaryMu.Lock()
	defer c.summaryMu.Unlock()

	if rows == nil {
		rows = []models.SummaryRow{}
	}
	c.summaries = rows
	c.summaryAt = c.now()
}

// GetIndicators retrieves a cached indicator series if it has not expired
func (c *MemoryCache) GetIndicators(ticker string, startDate, endDate time.Time) ([]models.IndicatorRow, bool) {
	c.indicatorMu.RLock()
	defer c.indicatorMu.RUnlock()

	entry, exists := c.indicators[indicatorCacheKey(ticker, startDate, endDate)]
	if !exists || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// SetIndicators caches an indicator series until the next market update
func (c *MemoryCache) SetIndicators(ticker string, startDate, endDate time.Time, data []models.IndicatorRow) {
	c.indicatorMu.Lock()
	defer c.indicatorMu.Unlock()

	c.indicators[indicatorCacheKey(ticker, startDate, endDate)] = indicatorEntry{
		data:      data,
		expiresAt: util.NextMarketDate(c.now()),
	}
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.summaryMu.Lock()
	c.summaries = nil
	c.summaryMu.Unlock()

	c.indicatorMu.Lock()
	c.indicators = make(map[string]indicatorEntry)
	c.indicatorMu.Unlock()
}
