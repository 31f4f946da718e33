package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

const (
	// maxFetchLimit caps a single bar request.
	maxFetchLimit = 1000
	// reducedDailyLookback is the last-resort request size at the terminal
	// timeframe.
	reducedDailyLookback = 100
)

// ErrNoData marks a fetch where every feed, timeframe fallback and reduction
// was exhausted. Callers skip the symbol for the cycle.
var ErrNoData = errors.New(errors.ErrCodeNoData, "no data available")

// defaultFeeds is the fixed feed priority order.
var defaultFeeds = []broker.Feed{broker.FeedSIP, broker.FeedDefault, broker.FeedIEX}

// FetcherConfig controls the resilience policy of a Fetcher.
type FetcherConfig struct {
	// Feeds is the priority order of feeds to try. Defaults to
	// [sip, default, iex].
	Feeds []broker.Feed
	// Retry is the per-call retry policy.
	Retry broker.RetryConfig
}

// FetchStats tracks fetch outcomes per feed and timeframe.
type FetchStats struct {
	Attempts           int64                     `json:"attempts"`
	Successes          int64                     `json:"successes"`
	FeedSuccesses      map[string]int64          `json:"feed_successes"`
	TimeframeSuccesses map[types.Timeframe]int64 `json:"timeframe_successes"`
	LastSuccess        time.Time                 `json:"last_success"`
}

// SuccessRate returns the fraction of attempts that produced a series.
func (s FetchStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}

	return float64(s.Successes) / float64(s.Attempts)
}

// Fetcher wraps a bar source with retry, multi-feed priority fallback,
// pagination and timeframe degradation. It never panics and never returns a
// partial series below the caller's minimum: the outcome is either a
// sufficient series or ErrNoData.
type Fetcher struct {
	source BarSource
	feeds  []broker.Feed
	retry  broker.RetryConfig
	log    *logger.Logger

	mu    sync.Mutex
	stats FetchStats
}

// NewFetcher creates a Fetcher over the given source.
func NewFetcher(source BarSource, config FetcherConfig, log *logger.Logger) *Fetcher {
	feeds := config.Feeds
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}

	retry := config.Retry
	if retry.MaxAttempts <= 0 {
		retry = broker.DefaultRetryConfig()
	}

	return &Fetcher{
		source: source,
		feeds:  feeds,
		retry:  retry,
		log:    log,
		mu:     sync.Mutex{},
		stats:  FetchStats{Attempts: 0, Successes: 0, FeedSuccesses: make(map[string]int64), TimeframeSuccesses: make(map[types.Timeframe]int64), LastSuccess: time.Time{}},
	}
}

// Stats returns a copy of the fetch counters.
func (f *Fetcher) Stats() FetchStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := f.stats
	stats.FeedSuccesses = make(map[string]int64, len(f.stats.FeedSuccesses))
	stats.TimeframeSuccesses = make(map[types.Timeframe]int64, len(f.stats.TimeframeSuccesses))

	for feed, count := range f.stats.FeedSuccesses {
		stats.FeedSuccesses[feed] = count
	}

	for tf, count := range f.stats.TimeframeSuccesses {
		stats.TimeframeSuccesses[tf] = count
	}

	return stats
}

// GetBars returns a standardized series of at least minRequiredBars bars for
// the symbol, trying progressively less-preferred feeds and timeframes until
// one succeeds or every avenue is exhausted.
func (f *Fetcher) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, lookbackBars, minRequiredBars int) (types.BarSeries, error) {
	if minRequiredBars <= 0 {
		minRequiredBars = lookbackBars
	}

	f.mu.Lock()
	f.stats.Attempts++
	f.mu.Unlock()

	limit := lookbackBars
	if limit > maxFetchLimit {
		limit = maxFetchLimit
	}

	for _, feed := range f.feeds {
		series, ok := f.tryFeed(ctx, symbol, timeframe, feed, limit, lookbackBars, minRequiredBars)
		if ok {
			return series, nil
		}
	}

	return f.fallback(ctx, symbol, timeframe, lookbackBars, minRequiredBars)
}

// tryFeed runs one feed attempt: fetch, optional pagination, standardization
// and the sufficiency check.
func (f *Fetcher) tryFeed(ctx context.Context, symbol string, timeframe types.Timeframe, feed broker.Feed, limit, lookbackBars, minRequiredBars int) (types.BarSeries, bool) {
	f.log.Debug("fetching bars",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.String("feed", feed.Name()),
		zap.Int("lookback_bars", lookbackBars),
	)

	fetchStart := time.Now()

	raw, err := broker.Retry(ctx, f.log, f.retry, fmt.Sprintf("get_bars %s", symbol), func() ([]types.RawBar, error) {
		return f.source.GetBars(ctx, broker.BarRequest{
			Symbol:    symbol,
			Timeframe: timeframe,
			Limit:     limit,
			Feed:      feed,
			End:       optional.None[time.Time](),
		})
	})
	if err != nil {
		f.log.ErrorEvent(logger.EventDataFetchError, map[string]any{
			"symbol":    symbol,
			"feed":      feed.Name(),
			"timeframe": string(timeframe),
			"error":     err.Error(),
		})

		return types.BarSeries{}, false
	}

	if len(raw) > 0 && len(raw) < lookbackBars {
		raw = f.paginate(ctx, symbol, timeframe, feed, limit, raw)
	}

	if len(raw) == 0 {
		return types.BarSeries{}, false
	}

	series, err := Standardize(symbol, timeframe, raw)
	if err != nil {
		f.log.Error("standardization failed",
			zap.String("symbol", symbol),
			zap.String("feed", feed.Name()),
			zap.Error(err),
		)

		return types.BarSeries{}, false
	}

	if series.Len() < minRequiredBars {
		f.log.Warn("feed returned too few bars",
			zap.String("symbol", symbol),
			zap.String("feed", feed.Name()),
			zap.Int("bar_count", series.Len()),
			zap.Int("needed_bars", minRequiredBars),
		)
		f.log.WarnEvent(logger.EventInsufficientData, map[string]any{
			"symbol":      symbol,
			"bar_count":   series.Len(),
			"needed_bars": minRequiredBars,
			"timeframe":   string(timeframe),
			"feed":        feed.Name(),
		})

		return types.BarSeries{}, false
	}

	first, _ := series.First()
	last, _ := series.Last()

	f.mu.Lock()
	f.stats.Successes++
	f.stats.FeedSuccesses[feed.Name()]++
	f.stats.TimeframeSuccesses[timeframe]++
	f.stats.LastSuccess = time.Now()
	f.mu.Unlock()

	f.log.Event(logger.EventDataFetchSuccess, map[string]any{
		"symbol":             symbol,
		"bar_count":          series.Len(),
		"timeframe":          string(timeframe),
		"feed":               feed.Name(),
		"fetch_time_seconds": time.Since(fetchStart).Seconds(),
		"date_range": map[string]any{
			"start": first.Time.Format(time.RFC3339),
			"end":   last.Time.Format(time.RFC3339),
		},
	})

	return series, true
}

// paginate issues one supplemental fetch bounded by the oldest timestamp
// already returned and stitches the pages together, older bars first,
// dropping duplicate timestamps in favor of the first occurrence.
func (f *Fetcher) paginate(ctx context.Context, symbol string, timeframe types.Timeframe, feed broker.Feed, limit int, raw []types.RawBar) []types.RawBar {
	oldest := oldestTimestamp(raw)
	if oldest.IsZero() {
		return raw
	}

	f.log.Event(logger.EventPaginationAttempt, map[string]any{
		"symbol":       symbol,
		"initial_bars": len(raw),
		"timeframe":    string(timeframe),
		"feed":         feed.Name(),
	})

	more, err := broker.Retry(ctx, f.log, f.retry, fmt.Sprintf("get_bars %s (pagination)", symbol), func() ([]types.RawBar, error) {
		return f.source.GetBars(ctx, broker.BarRequest{
			Symbol:    symbol,
			Timeframe: timeframe,
			Limit:     limit,
			Feed:      feed,
			End:       optional.Some(oldest),
		})
	})
	if err != nil || len(more) == 0 {
		return raw
	}

	combined := make([]types.RawBar, 0, len(more)+len(raw))
	combined = append(combined, more...)
	combined = append(combined, raw...)
	combined = dedupeByTimestamp(combined)

	f.log.Event(logger.EventPaginationSuccess, map[string]any{
		"symbol":          symbol,
		"additional_bars": len(more),
		"total_bars":      len(combined),
		"timeframe":       string(timeframe),
		"feed":            feed.Name(),
	})

	return combined
}

// fallback degrades to the next coarser timeframe, or at the terminal
// timeframe retries once with a reduced request size before giving up.
func (f *Fetcher) fallback(ctx context.Context, symbol string, timeframe types.Timeframe, lookbackBars, minRequiredBars int) (types.BarSeries, error) {
	if next, ok := timeframe.Fallback(); ok {
		f.log.Warn("falling back to coarser timeframe",
			zap.String("symbol", symbol),
			zap.String("from", string(timeframe)),
			zap.String("to", string(next)),
		)
		f.log.WarnEvent(logger.EventTimeframeFallback, map[string]any{
			"symbol":         symbol,
			"from_timeframe": string(timeframe),
			"to_timeframe":   string(next),
		})

		return f.GetBars(ctx, symbol, next, lookbackBars, minRequiredBars)
	}

	if lookbackBars > reducedDailyLookback {
		reduced := minRequiredBars
		if reduced > reducedDailyLookback {
			reduced = reducedDailyLookback
		}

		f.log.Warn("reducing request size at terminal timeframe",
			zap.String("symbol", symbol),
			zap.Int("from_size", lookbackBars),
			zap.Int("to_size", reduced),
		)
		f.log.WarnEvent(logger.EventRequestSizeReduction, map[string]any{
			"symbol":    symbol,
			"from_size": lookbackBars,
			"to_size":   reduced,
		})

		return f.GetBars(ctx, symbol, timeframe, reduced, minRequiredBars)
	}

	f.mu.Lock()
	attempts := f.stats.Attempts
	successRate := f.stats.SuccessRate()
	f.mu.Unlock()

	f.log.Error("no data available across all feeds and fallbacks",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
	)
	f.log.ErrorEvent(logger.EventDataFetchCompleteFailure, map[string]any{
		"symbol":       symbol,
		"attempts":     attempts,
		"success_rate": successRate,
	})

	return types.BarSeries{Symbol: symbol, Timeframe: timeframe, Bars: nil}, ErrNoData
}

// oldestTimestamp returns the earliest non-zero timestamp in the rows.
func oldestTimestamp(raw []types.RawBar) time.Time {
	var oldest time.Time

	for _, row := range raw {
		if row.Time.IsZero() {
			continue
		}

		if oldest.IsZero() || row.Time.Before(oldest) {
			oldest = row.Time
		}
	}

	return oldest
}

// dedupeByTimestamp keeps the first occurrence of each timestamp in slice
// order. Rows without a timestamp pass through untouched.
func dedupeByTimestamp(raw []types.RawBar) []types.RawBar {
	seen := make(map[int64]bool, len(raw))
	out := make([]types.RawBar, 0, len(raw))

	for _, row := range raw {
		if !row.Time.IsZero() {
			key := row.Time.UnixNano()
			if seen[key] {
				continue
			}

			seen[key] = true
		}

		out = append(out, row)
	}

	return out
}
