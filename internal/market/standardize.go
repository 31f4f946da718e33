package market

import (
	"sort"

	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// requiredColumns are the columns every standardized bar must carry.
var requiredColumns = []string{"open", "high", "low", "close", "volume"}

// Standardize converts raw bar rows into a canonical series: timestamps
// UTC-normalized, rows sorted ascending, duplicate timestamps dropped keeping
// the first occurrence, volume cast to an integer. Rows missing individual
// required values are dropped; a required column absent from every row fails
// the whole transform so the caller can move to the next fallback. The input
// slice is never mutated.
func Standardize(symbol string, timeframe types.Timeframe, raw []types.RawBar) (types.BarSeries, error) {
	series := types.BarSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Bars:      nil,
	}

	if len(raw) == 0 {
		return series, nil
	}

	hasTimestamp := false
	columnSeen := make(map[string]bool, len(requiredColumns))

	for _, row := range raw {
		if !row.Time.IsZero() {
			hasTimestamp = true
		}

		for _, col := range requiredColumns {
			if _, ok := row.Columns[col]; ok {
				columnSeen[col] = true
			}
		}
	}

	if !hasTimestamp {
		return series, errors.Newf(errors.ErrCodeMissingTimestamp, "cannot find timestamp column for %s", symbol)
	}

	for _, col := range requiredColumns {
		if !columnSeen[col] {
			return series, errors.Newf(errors.ErrCodeMissingColumn, "missing required column %q for %s", col, symbol)
		}
	}

	bars := make([]types.Bar, 0, len(raw))

	for _, row := range raw {
		if row.Time.IsZero() {
			continue
		}

		complete := true

		for _, col := range requiredColumns {
			if _, ok := row.Columns[col]; !ok {
				complete = false

				break
			}
		}

		if !complete {
			continue
		}

		bars = append(bars, types.Bar{
			Time:   row.Time.UTC(),
			Open:   row.Columns["open"],
			High:   row.Columns["high"],
			Low:    row.Columns["low"],
			Close:  row.Columns["close"],
			Volume: int64(row.Columns["volume"]),
		})
	}

	// Stable sort keeps the earlier occurrence first among equal timestamps,
	// so the dedup below is first-wins.
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	deduped := bars[:0:0]

	for _, bar := range bars {
		if len(deduped) > 0 && deduped[len(deduped)-1].Time.Equal(bar.Time) {
			continue
		}

		deduped = append(deduped, bar)
	}

	series.Bars = deduped

	return series, nil
}
