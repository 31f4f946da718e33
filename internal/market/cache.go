package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
)

// DefaultCacheTTL is how long a cached series stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// BarFetcher is the slice of the fetcher the cache needs.
type BarFetcher interface {
	GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, lookbackBars, minRequiredBars int) (types.BarSeries, error)
}

// CacheStats tracks cache effectiveness. Counters survive Clear so the hit
// ratio reflects the whole process lifetime.
type CacheStats struct {
	Requests        int64     `json:"requests"`
	Hits            int64     `json:"hits"`
	FailedRequests  int64     `json:"failed_requests"`
	LastRequestTime time.Time `json:"last_request_time"`
}

// HitRatio returns hits over requests, zero-safe.
func (s CacheStats) HitRatio() float64 {
	if s.Requests == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Requests)
}

type cacheEntry struct {
	series    map[string]types.BarSeries
	fetchedAt time.Time
}

// Provider serves multi-symbol bar requests through a TTL cache in front of a
// fetcher. Symbols that yield no data are simply absent from the result map.
type Provider struct {
	fetcher BarFetcher
	ttl     time.Duration
	log     *logger.Logger

	// now is swappable for tests.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	stats   CacheStats
}

// NewProvider creates a Provider with the given TTL. A non-positive TTL uses
// DefaultCacheTTL.
func NewProvider(fetcher BarFetcher, ttl time.Duration, log *logger.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Provider{
		fetcher: fetcher,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		mu:      sync.Mutex{},
		entries: make(map[string]cacheEntry),
		stats:   CacheStats{Requests: 0, Hits: 0, FailedRequests: 0, LastRequestTime: time.Time{}},
	}
}

// GetBars returns a series per symbol, serving from cache when a fresh entry
// covers the identical request. A fetch failure for one symbol never fails the
// whole call; the symbol is left out and the failure counter bumped.
func (p *Provider) GetBars(ctx context.Context, symbols []string, timeframe types.Timeframe, lookbackBars, minRequiredBars int) map[string]types.BarSeries {
	key := cacheKey(symbols, timeframe, lookbackBars)

	p.mu.Lock()
	p.stats.Requests++
	p.stats.LastRequestTime = p.now()

	if entry, ok := p.entries[key]; ok && p.now().Sub(entry.fetchedAt) < p.ttl {
		p.stats.Hits++
		p.mu.Unlock()

		p.log.Debug("cache hit", zap.String("key", key))

		return entry.series
	}
	p.mu.Unlock()

	result := make(map[string]types.BarSeries, len(symbols))

	for _, symbol := range symbols {
		series, err := p.fetcher.GetBars(ctx, symbol, timeframe, lookbackBars, minRequiredBars)
		if err != nil {
			p.mu.Lock()
			p.stats.FailedRequests++
			p.mu.Unlock()

			p.log.Warn("dropping symbol from cycle",
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		result[symbol] = series
	}

	// An empty result is never cached: a feed that failed for every symbol
	// must be re-queried next cycle, not served as a hit until the TTL runs
	// out.
	if len(result) > 0 {
		p.mu.Lock()
		p.entries[key] = cacheEntry{series: result, fetchedAt: p.now()}
		p.mu.Unlock()
	}

	return result
}

// Stats returns a copy of the cache counters.
func (p *Provider) Stats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}

// Clear drops every cached entry. Counters are preserved.
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = make(map[string]cacheEntry)
	p.log.Debug("cache cleared")
}

// cacheKey is order-insensitive over symbols so [A,B] and [B,A] share an
// entry.
func cacheKey(symbols []string, timeframe types.Timeframe, lookbackBars int) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	return fmt.Sprintf("%s|%s|%d", strings.Join(sorted, ","), timeframe, lookbackBars)
}
