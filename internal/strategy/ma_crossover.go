package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

const (
	// defaultStopLossFraction places the protective stop below the entry
	// close.
	defaultStopLossFraction = 0.95
	// lookbackPadding is extra bars requested beyond the long window so the
	// previous-bar averages are always computable.
	lookbackPadding = 10
)

// MACrossoverConfig configures the moving average crossover strategy.
type MACrossoverConfig struct {
	ShortWindow int             `json:"short_window" jsonschema:"required,description=Short moving average window in bars" validate:"required,gt=0,ltfield=LongWindow" yaml:"short_window"`
	LongWindow  int             `json:"long_window"  jsonschema:"required,description=Long moving average window in bars"  validate:"required,gt=0"                    yaml:"long_window"`
	Timeframe   types.Timeframe `json:"timeframe"    jsonschema:"description=Bar timeframe to analyze"                     validate:"omitempty"                        yaml:"timeframe"`
}

// MACrossover trades golden and death crosses of two simple moving averages.
// A buy carries a protective stop below the close; a death cross asks to
// exit.
type MACrossover struct {
	config MACrossoverConfig
	log    *logger.Logger
}

// NewMACrossover validates the config and creates the strategy. An unset
// timeframe defaults to hourly bars.
func NewMACrossover(config MACrossoverConfig, log *logger.Logger) (*MACrossover, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid ma crossover config", err)
	}

	if config.Timeframe == "" {
		config.Timeframe = types.Timeframe1H
	}

	if !config.Timeframe.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %q", config.Timeframe)
	}

	return &MACrossover{config: config, log: log}, nil
}

// Name implements Strategy.
func (s *MACrossover) Name() string {
	return fmt.Sprintf("ma_crossover_%d_%d", s.config.ShortWindow, s.config.LongWindow)
}

// RequiredData implements Strategy. One bar beyond the long window is the
// floor: the crossover needs averages for both the latest and the previous
// bar.
func (s *MACrossover) RequiredData() DataRequirement {
	return DataRequirement{
		Timeframe:       s.config.Timeframe,
		LookbackBars:    s.config.LongWindow + lookbackPadding,
		MinRequiredBars: s.config.LongWindow + 1,
	}
}

// Analyze implements Strategy. A cross is detected by strict inequality: the
// short average must be at or below the long average on the previous bar and
// strictly above it on the latest bar (and mirrored for the death cross). A
// series too short to compute both pairs of averages yields the none action
// rather than an error.
func (s *MACrossover) Analyze(ctx context.Context, symbol string, series types.BarSeries) (types.Signal, error) {
	minBars := s.config.LongWindow + 1
	if series.Len() < minBars {
		return types.Signal{
			Time:     time.Now(),
			Symbol:   symbol,
			Action:   types.SignalActionNone,
			Price:    optional.None[float64](),
			StopLoss: optional.None[float64](),
			Reason:   fmt.Sprintf("insufficient bars: %d, need %d", series.Len(), minBars),
			Metrics:  map[string]float64{"bar_count": float64(series.Len())},
			Strategy: s.Name(),
		}, nil
	}

	closes := series.Closes()
	last, _ := series.Last()

	currShort := mean(closes[len(closes)-s.config.ShortWindow:])
	currLong := mean(closes[len(closes)-s.config.LongWindow:])
	prevCloses := closes[:len(closes)-1]
	prevShort := mean(prevCloses[len(prevCloses)-s.config.ShortWindow:])
	prevLong := mean(prevCloses[len(prevCloses)-s.config.LongWindow:])

	signal := types.Signal{
		Time:     last.Time,
		Symbol:   symbol,
		Action:   types.SignalActionNone,
		Price:    optional.None[float64](),
		StopLoss: optional.None[float64](),
		Reason:   "no crossover",
		Metrics: map[string]float64{
			"latest_close":     last.Close,
			"current_short_ma": currShort,
			"current_long_ma":  currLong,
			"prev_short_ma":    prevShort,
			"prev_long_ma":     prevLong,
		},
		Strategy: s.Name(),
	}

	switch {
	case prevShort <= prevLong && currShort > currLong:
		signal.Action = types.SignalActionBuy
		signal.Price = optional.Some(last.Close)
		signal.StopLoss = optional.Some(last.Close * defaultStopLossFraction)
		signal.Reason = "golden cross"
	case prevShort >= prevLong && currShort < currLong:
		signal.Action = types.SignalActionSell
		signal.Price = optional.Some(last.Close)
		signal.Reason = "death cross"
	}

	if signal.Actionable() {
		s.log.Event(logger.EventStrategyAnalysis, map[string]any{
			"strategy": s.Name(),
			"symbol":   symbol,
			"action":   string(signal.Action),
			"reason":   signal.Reason,
			"metrics":  signal.Metrics,
		})
	}

	return signal, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
