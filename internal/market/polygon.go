package market

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// polygonWindowFactor widens the time window so thin sessions still yield
// enough bars before trimming.
const polygonWindowFactor = 2

// PolygonSource fetches aggregate bars from Polygon.io. Polygon has no feed
// tiers, so the request feed is ignored.
type PolygonSource struct {
	client *polygon.Client
}

// NewPolygonSource creates a Polygon-backed bar source.
func NewPolygonSource(apiKey string) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "polygon api key is required")
	}

	return &PolygonSource{client: polygon.New(apiKey)}, nil
}

// Name implements BarSource.
func (s *PolygonSource) Name() string {
	return "polygon"
}

// GetBars implements BarSource.
func (s *PolygonSource) GetBars(ctx context.Context, req broker.BarRequest) ([]types.RawBar, error) {
	multiplier, timespan, err := polygonTimespan(req.Timeframe)
	if err != nil {
		return nil, err
	}

	end := req.End.TakeOr(time.Now())
	window := req.Timeframe.Duration() * time.Duration(req.Limit*polygonWindowFactor)
	from := end.Add(-window)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := s.client.ListAggs(ctx, params)

	var raw []types.RawBar

	for iter.Next() {
		agg := iter.Item()
		raw = append(raw, types.RawBar{
			Time: time.Time(agg.Timestamp),
			Columns: map[string]float64{
				"open":   agg.Open,
				"high":   agg.High,
				"low":    agg.Low,
				"close":  agg.Close,
				"volume": agg.Volume,
			},
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, iter.Err(), "polygon aggregates failed for %s", req.Symbol)
	}

	// The widened window can overshoot; keep only the most recent bars.
	if len(raw) > req.Limit {
		raw = raw[len(raw)-req.Limit:]
	}

	return raw, nil
}

// polygonTimespan maps a timeframe onto Polygon's multiplier and timespan
// pair.
func polygonTimespan(tf types.Timeframe) (int, models.Timespan, error) {
	switch tf {
	case types.Timeframe1Min:
		return 1, models.Minute, nil
	case types.Timeframe2Min:
		return 2, models.Minute, nil
	case types.Timeframe5Min:
		return 5, models.Minute, nil
	case types.Timeframe15Min:
		return 15, models.Minute, nil
	case types.Timeframe30Min:
		return 30, models.Minute, nil
	case types.Timeframe1H:
		return 1, models.Hour, nil
	case types.Timeframe1D:
		return 1, models.Day, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", tf)
	}
}
