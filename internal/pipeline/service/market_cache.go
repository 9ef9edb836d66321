package service

import (
	"fmt"
	"time"

	"stock-feature-pipeline/internal/pipeline/dto"

	gocache "github.com/patrickmn/go-cache"
)

// MarketIndicatorCache holds market-wide indicator values keyed by
// (market, date). It is injected into the snapshot builder; a missing entry
// means the builder leaves the market-wide columns null.
type MarketIndicatorCache struct {
	cache *gocache.Cache
}

// NewMarketIndicatorCache creates a cache with the given entry TTL.
func NewMarketIndicatorCache(ttl time.Duration) *MarketIndicatorCache {
	return &MarketIndicatorCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Set stores the indicators for a (market, date).
func (c *MarketIndicatorCache) Set(market string, date time.Time, indicators dto.MarketIndicators) {
	c.cache.SetDefault(indicatorKey(market, date), indicators)
}

// Get retrieves the indicators for a (market, date).
func (c *MarketIndicatorCache) Get(market string, date time.Time) (dto.MarketIndicators, bool) {
	v, ok := c.cache.Get(indicatorKey(market, date))
	if !ok {
		return dto.MarketIndicators{}, false
	}
	return v.(dto.MarketIndicators), true
}

// Flush evicts every cached entry.
func (c *MarketIndicatorCache) Flush() {
	c.cache.Flush()
}

func indicatorKey(market string, date time.Time) string {
	return fmt.Sprintf("%s:%s", market, date.Format("2006-01-02"))
}
