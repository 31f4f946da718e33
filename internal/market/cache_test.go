package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/mocks"
	"github.com/helios-trade/helios/pkg/errors"
)

// stubFetcher counts fetches and can fail selected symbols.
type stubFetcher struct {
	calls   int
	failing map[string]bool
}

func (f *stubFetcher) GetBars(_ context.Context, symbol string, timeframe types.Timeframe, lookbackBars, _ int) (types.BarSeries, error) {
	f.calls++

	if f.failing[symbol] {
		return types.BarSeries{}, errors.New(errors.ErrCodeNoData, "no data available")
	}

	config := mocks.DefaultConfig()
	config.Symbol = symbol
	config.Timeframe = timeframe
	config.Count = lookbackBars

	return mocks.NewDataGenerator(1).GenerateSeries(config), nil
}

type ProviderTestSuite struct {
	suite.Suite
	fetcher  *stubFetcher
	provider *Provider
	now      time.Time
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (s *ProviderTestSuite) SetupTest() {
	s.fetcher = &stubFetcher{calls: 0, failing: map[string]bool{}}
	s.provider = NewProvider(s.fetcher, 5*time.Minute, logger.NewNop())
	s.now = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	s.provider.now = func() time.Time { return s.now }
}

func (s *ProviderTestSuite) TestSecondFetchWithinTTLHitsCache() {
	symbols := []string{"AAPL", "MSFT"}

	first := s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.Require().Len(first, 2)
	s.Equal(2, s.fetcher.calls)

	s.now = s.now.Add(time.Minute)

	second := s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.Equal(2, s.fetcher.calls, "cached entry must be served without fetching")
	s.Equal(first["AAPL"].Len(), second["AAPL"].Len())

	stats := s.provider.Stats()
	s.Equal(int64(2), stats.Requests)
	s.Equal(int64(1), stats.Hits)
	s.InDelta(0.5, stats.HitRatio(), 1e-9)
}

func (s *ProviderTestSuite) TestExpiredEntryRefetches() {
	symbols := []string{"AAPL"}

	s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.Equal(1, s.fetcher.calls)

	s.now = s.now.Add(6 * time.Minute)

	s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.Equal(2, s.fetcher.calls)
	s.Equal(int64(0), s.provider.Stats().Hits)
}

func (s *ProviderTestSuite) TestSymbolOrderDoesNotMatter() {
	s.provider.GetBars(context.Background(), []string{"AAPL", "MSFT"}, types.Timeframe1H, 50, 30)
	calls := s.fetcher.calls

	s.provider.GetBars(context.Background(), []string{"MSFT", "AAPL"}, types.Timeframe1H, 50, 30)
	s.Equal(calls, s.fetcher.calls, "reordered symbol list must share the cache entry")
}

func (s *ProviderTestSuite) TestFailedSymbolIsDropped() {
	s.fetcher.failing["MSFT"] = true

	result := s.provider.GetBars(context.Background(), []string{"AAPL", "MSFT"}, types.Timeframe1H, 50, 30)
	s.Require().Len(result, 1)
	s.Contains(result, "AAPL")
	s.Equal(int64(1), s.provider.Stats().FailedRequests)
}

func (s *ProviderTestSuite) TestAllSymbolsFailingIsNotCached() {
	s.fetcher.failing["AAPL"] = true

	result := s.provider.GetBars(context.Background(), []string{"AAPL"}, types.Timeframe1H, 50, 30)
	s.Empty(result)
	s.Equal(1, s.fetcher.calls)

	// Feed recovers well inside the TTL: the empty result must not be
	// served as a hit.
	s.fetcher.failing["AAPL"] = false
	s.now = s.now.Add(time.Minute)

	result = s.provider.GetBars(context.Background(), []string{"AAPL"}, types.Timeframe1H, 50, 30)
	s.Require().Len(result, 1)
	s.Contains(result, "AAPL")
	s.Equal(2, s.fetcher.calls)
	s.Equal(int64(0), s.provider.Stats().Hits)
}

func (s *ProviderTestSuite) TestClearPreservesCounters() {
	symbols := []string{"AAPL"}

	s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)

	before := s.provider.Stats()
	s.provider.Clear()
	after := s.provider.Stats()

	s.Equal(before.Requests, after.Requests)
	s.Equal(before.Hits, after.Hits)

	// Entry is gone: the next request fetches again.
	s.provider.GetBars(context.Background(), symbols, types.Timeframe1H, 50, 30)
	s.Equal(2, s.fetcher.calls)
}
