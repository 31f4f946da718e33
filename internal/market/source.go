// Package market implements the data-acquisition layer: bar sources,
// standardization, the resilient fetcher and the TTL bar cache.
package market

import (
	"context"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/types"
)

// BarSource fetches raw historical bars from one venue. Implementations do
// not retry; retry and fallback policy is owned by the Fetcher.
type BarSource interface {
	// Name identifies the source in logs and stats.
	Name() string
	// GetBars returns raw bars for the request. Sources without feed tiers
	// ignore the request feed.
	GetBars(ctx context.Context, req broker.BarRequest) ([]types.RawBar, error)
}
