package types

import "time"

// Timeframe is the bucket width for bars.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1Min"
	Timeframe2Min  Timeframe = "2Min"
	Timeframe5Min  Timeframe = "5Min"
	Timeframe15Min Timeframe = "15Min"
	Timeframe30Min Timeframe = "30Min"
	Timeframe1H    Timeframe = "1H"
	Timeframe1D    Timeframe = "1D"
)

// timeframeFallbacks is the fixed degradation chain used when a timeframe
// cannot produce enough bars. Daily has no further fallback.
var timeframeFallbacks = map[Timeframe]Timeframe{
	Timeframe1Min:  Timeframe2Min,
	Timeframe2Min:  Timeframe5Min,
	Timeframe5Min:  Timeframe15Min,
	Timeframe15Min: Timeframe30Min,
	Timeframe30Min: Timeframe1H,
	Timeframe1H:    Timeframe1D,
}

// Fallback returns the next coarser timeframe in the degradation chain.
// The second return value is false when the timeframe is terminal.
func (tf Timeframe) Fallback() (Timeframe, bool) {
	next, ok := timeframeFallbacks[tf]

	return next, ok
}

// Duration returns the bucket width of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1Min:
		return time.Minute
	case Timeframe2Min:
		return 2 * time.Minute
	case Timeframe5Min:
		return 5 * time.Minute
	case Timeframe15Min:
		return 15 * time.Minute
	case Timeframe30Min:
		return 30 * time.Minute
	case Timeframe1H:
		return time.Hour
	case Timeframe1D:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Valid reports whether the timeframe is one of the supported buckets.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Timeframe1Min, Timeframe2Min, Timeframe5Min, Timeframe15Min, Timeframe30Min, Timeframe1H, Timeframe1D:
		return true
	default:
		return false
	}
}

// Bar is a single OHLCV sample for one time bucket. Time is always UTC.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume int64     `json:"volume" yaml:"volume"`
}

// RawBar is an unstandardized bar record as returned by a data source.
// Columns are keyed by name; a source may omit columns or deliver rows out of
// order. The standardizer converts raw rows into a canonical BarSeries.
type RawBar struct {
	// Time is the bar timestamp. A zero time marks a row without a usable
	// timestamp column.
	Time time.Time
	// Columns maps column names (e.g. "open", "close", "volume") to values.
	Columns map[string]float64
}

// BarSeries is an ordered bar sequence for one symbol and timeframe, sorted
// ascending by timestamp with no duplicates. It is constructed fresh per fetch
// and never mutated once handed to a strategy.
type BarSeries struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Timeframe Timeframe `json:"timeframe" yaml:"timeframe"`
	Bars      []Bar     `json:"bars" yaml:"bars"`
}

// Len returns the number of bars in the series.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series holds no bars.
func (s BarSeries) Empty() bool {
	return len(s.Bars) == 0
}

// First returns the oldest bar in the series.
func (s BarSeries) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}

	return s.Bars[0], true
}

// Last returns the most recent bar in the series.
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}

	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the closing prices in series order.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}

	return closes
}
