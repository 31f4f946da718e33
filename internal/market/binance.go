package market

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// BinanceSource fetches klines from Binance. Public kline data needs no
// credentials. Binance has no feed tiers, so the request feed is ignored.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a Binance-backed bar source.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: binance.NewClient("", "")}
}

// Name implements BarSource.
func (s *BinanceSource) Name() string {
	return "binance"
}

// GetBars implements BarSource. Timeframes Binance has no interval for (2Min)
// return an error so the caller can fall back to the next timeframe.
func (s *BinanceSource) GetBars(ctx context.Context, req broker.BarRequest) ([]types.RawBar, error) {
	interval, err := binanceInterval(req.Timeframe)
	if err != nil {
		return nil, err
	}

	svc := s.client.NewKlinesService().
		Symbol(req.Symbol).
		Interval(interval).
		Limit(req.Limit)

	if req.End.IsSome() {
		svc = svc.EndTime(req.End.Unwrap().UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "binance klines failed for %s", req.Symbol)
	}

	raw := make([]types.RawBar, 0, len(klines))

	for _, k := range klines {
		bar, err := klineToRawBar(k)
		if err != nil {
			return nil, err
		}

		raw = append(raw, bar)
	}

	return raw, nil
}

// klineToRawBar parses one kline's string-encoded OHLCV values. A malformed
// value fails the whole fetch so the fetcher treats the feed attempt as
// failed instead of receiving zero-valued bars.
func klineToRawBar(k *binance.Kline) (types.RawBar, error) {
	fields := map[string]string{
		"open":   k.Open,
		"high":   k.High,
		"low":    k.Low,
		"close":  k.Close,
		"volume": k.Volume,
	}

	columns := make(map[string]float64, len(fields))

	for name, value := range fields {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return types.RawBar{}, errors.Wrapf(errors.ErrCodeFetchFailed, err, "malformed binance kline %s value %q", name, value)
		}

		columns[name] = parsed
	}

	return types.RawBar{Time: time.UnixMilli(k.OpenTime), Columns: columns}, nil
}

// binanceInterval maps a timeframe onto Binance's interval strings.
func binanceInterval(tf types.Timeframe) (string, error) {
	switch tf {
	case types.Timeframe1Min:
		return "1m", nil
	case types.Timeframe5Min:
		return "5m", nil
	case types.Timeframe15Min:
		return "15m", nil
	case types.Timeframe30Min:
		return "30m", nil
	case types.Timeframe1H:
		return "1h", nil
	case types.Timeframe1D:
		return "1d", nil
	default:
		return "", errors.Newf(errors.ErrCodeSourceUnavailable, "binance has no interval for timeframe %q", tf)
	}
}
