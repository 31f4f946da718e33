package market

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

func testKline() *binance.Kline {
	return &binance.Kline{
		OpenTime: time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC).UnixMilli(),
		Open:     "100.5",
		High:     "101.25",
		Low:      "99.75",
		Close:    "100.0",
		Volume:   "1200",
	}
}

func TestKlineToRawBar(t *testing.T) {
	bar, err := klineToRawBar(testKline())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC), bar.Time.UTC())
	assert.Equal(t, 100.5, bar.Columns["open"])
	assert.Equal(t, 100.0, bar.Columns["close"])
	assert.Equal(t, 1200.0, bar.Columns["volume"])
}

func TestKlineToRawBar_MalformedValueFails(t *testing.T) {
	k := testKline()
	k.Close = "not-a-number"

	_, err := klineToRawBar(k)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFetchFailed))
}

func TestBinanceInterval(t *testing.T) {
	interval, err := binanceInterval(types.Timeframe1Min)
	require.NoError(t, err)
	assert.Equal(t, "1m", interval)

	interval, err = binanceInterval(types.Timeframe1H)
	require.NoError(t, err)
	assert.Equal(t, "1h", interval)

	// No 2-minute interval exists; the fetcher falls back to the next
	// timeframe in the chain.
	_, err = binanceInterval(types.Timeframe2Min)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSourceUnavailable))
}
