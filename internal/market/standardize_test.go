package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

func rawRow(ts time.Time, close float64) types.RawBar {
	return types.RawBar{
		Time: ts,
		Columns: map[string]float64{
			"open":   close - 1,
			"high":   close + 1,
			"low":    close - 2,
			"close":  close,
			"volume": 1000,
		},
	}
}

func TestStandardize_SortsAndDeduplicates(t *testing.T) {
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	raw := []types.RawBar{
		rawRow(base.Add(2*time.Minute), 103),
		rawRow(base, 101),
		rawRow(base.Add(time.Minute), 102),
		rawRow(base.Add(time.Minute), 999), // duplicate timestamp, dropped
	}

	series, err := Standardize("AAPL", types.Timeframe1Min, raw)
	require.NoError(t, err)
	require.Equal(t, 3, series.Len())

	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, types.Timeframe1Min, series.Timeframe)

	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.Bars[i].Time.After(series.Bars[i-1].Time))
	}

	// First occurrence wins for the duplicated timestamp.
	assert.Equal(t, 102.0, series.Bars[1].Close)
	assert.LessOrEqual(t, series.Len(), len(raw))
}

func TestStandardize_EmptyInput(t *testing.T) {
	series, err := Standardize("AAPL", types.Timeframe1Min, nil)
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestStandardize_MissingColumnFails(t *testing.T) {
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	raw := []types.RawBar{
		{
			Time: base,
			Columns: map[string]float64{
				"open": 100, "high": 101, "low": 99, "close": 100,
				// volume absent from every row
			},
		},
		{
			Time: base.Add(time.Minute),
			Columns: map[string]float64{
				"open": 100, "high": 101, "low": 99, "close": 100,
			},
		},
	}

	_, err := Standardize("AAPL", types.Timeframe1Min, raw)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingColumn))
}

func TestStandardize_MissingTimestampFails(t *testing.T) {
	raw := []types.RawBar{
		{Time: time.Time{}, Columns: map[string]float64{"open": 1, "high": 1, "low": 1, "close": 1, "volume": 1}},
	}

	_, err := Standardize("AAPL", types.Timeframe1Min, raw)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingTimestamp))
}

func TestStandardize_DropsIncompleteRows(t *testing.T) {
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	raw := []types.RawBar{
		rawRow(base, 100),
		{Time: base.Add(time.Minute), Columns: map[string]float64{"open": 100, "close": 100}}, // incomplete
		rawRow(base.Add(2*time.Minute), 102),
	}

	series, err := Standardize("AAPL", types.Timeframe1Min, raw)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestStandardize_NormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	raw := []types.RawBar{rawRow(time.Date(2024, 6, 3, 10, 30, 0, 0, loc), 100)}

	series, err := Standardize("AAPL", types.Timeframe1Min, raw)
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, time.UTC, series.Bars[0].Time.Location())
}
