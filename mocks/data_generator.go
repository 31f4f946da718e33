// Package mocks provides deterministic market data generation for tests and
// benchmarks.
package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/helios-trade/helios/internal/types"
)

// DataGenerator generates realistic bar data for testing.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bar data is generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "AAPL", "SPY")
	Symbol string
	// Timeframe labels the generated series
	Timeframe types.Timeframe
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.002 = 0.2% per bar)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		Timeframe:      types.Timeframe1Min,
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// GenerateRaw creates raw bar rows following a geometric Brownian motion
// model, the shape a bar source hands to the standardizer.
func (g *DataGenerator) GenerateRaw(config GeneratorConfig) []types.RawBar {
	raw := make([]types.RawBar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime
	interval := config.Timeframe.Duration()

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed step.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase
		}

		raw[i] = types.RawBar{
			Time: currentTime,
			Columns: map[string]float64{
				"open":   open,
				"high":   high,
				"low":    low,
				"close":  closePrice,
				"volume": math.Floor(volume),
			},
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(interval)
	}

	return raw
}

// GenerateSeries creates a standardized bar series directly, for tests that
// feed strategies or the orchestrator.
func (g *DataGenerator) GenerateSeries(config GeneratorConfig) types.BarSeries {
	raw := g.GenerateRaw(config)
	bars := make([]types.Bar, len(raw))

	for i, row := range raw {
		bars[i] = types.Bar{
			Time:   row.Time.UTC(),
			Open:   row.Columns["open"],
			High:   row.Columns["high"],
			Low:    row.Columns["low"],
			Close:  row.Columns["close"],
			Volume: int64(row.Columns["volume"]),
		}
	}

	return types.BarSeries{
		Symbol:    config.Symbol,
		Timeframe: config.Timeframe,
		Bars:      bars,
	}
}

// TrendingCloses builds a series whose closes follow the given values
// exactly, spaced one timeframe apart. Useful for crossover tests that need
// precise shapes.
func TrendingCloses(symbol string, timeframe types.Timeframe, start time.Time, closes []float64) types.BarSeries {
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   start.Add(time.Duration(i) * timeframe.Duration()),
			Open:   c,
			High:   c * 1.001,
			Low:    c * 0.999,
			Close:  c,
			Volume: 1000,
		}
	}

	return types.BarSeries{Symbol: symbol, Timeframe: timeframe, Bars: bars}
}
