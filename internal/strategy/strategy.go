// Package strategy defines the strategy capability and the built-in
// strategies the trading loop can run.
package strategy

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/helios-trade/helios/internal/types"
)

// DataRequirement declares the market data a strategy wants per symbol.
// LookbackBars is the preferred request size; MinRequiredBars is the floor
// below which the strategy cannot produce a meaningful answer.
type DataRequirement struct {
	Timeframe       types.Timeframe `json:"timeframe"`
	LookbackBars    int             `json:"lookback_bars"`
	MinRequiredBars int             `json:"min_required_bars"`
}

// Strategy is the capability every trading strategy implements. Analyze must
// be a pure function of the series: no I/O, no stored state between calls.
type Strategy interface {
	// Name identifies the strategy in signals, logs and the journal.
	Name() string
	// RequiredData declares what data Analyze needs.
	RequiredData() DataRequirement
	// Analyze inspects the series and returns a signal. A non-actionable
	// signal carries ActionNone.
	Analyze(ctx context.Context, symbol string, series types.BarSeries) (types.Signal, error)
}

// ToJSONSchema renders the JSON schema of a strategy config struct so
// operators can validate their YAML before a run.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
