// Package broker defines the brokerage capability consumed by the trading
// core, plus the retry policy shared by its implementations. Every call may
// fail; callers treat a failure as "no data this attempt" and never let it
// escape the trading cycle.
package broker

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/helios-trade/helios/internal/types"
)

// Feed is a named market data source with its own availability and latency
// characteristics. The empty feed selects the venue's default.
type Feed string

const (
	// FeedSIP is the consolidated institutional feed.
	FeedSIP Feed = "sip"
	// FeedDefault lets the venue choose.
	FeedDefault Feed = ""
	// FeedIEX is the retail feed.
	FeedIEX Feed = "iex"
)

// Name returns a printable feed name.
func (f Feed) Name() string {
	if f == FeedDefault {
		return "default"
	}

	return string(f)
}

// BarRequest describes one historical bar fetch.
type BarRequest struct {
	Symbol    string
	Timeframe types.Timeframe
	// Limit is the maximum number of bars to return.
	Limit int
	// Feed selects the data feed. Sources without feed tiers ignore it.
	Feed Feed
	// End is an exclusive upper bound on bar timestamps, used for pagination.
	End optional.Option[time.Time]
}

// Broker is the brokerage capability: account state, market clock, positions,
// historical bars and order management.
type Broker interface {
	GetAccount(ctx context.Context) (types.AccountInfo, error)
	GetClock(ctx context.Context) (types.Clock, error)
	ListPositions(ctx context.Context) ([]types.Position, error)
	GetBars(ctx context.Context, req BarRequest) ([]types.RawBar, error)
	CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	ListOrders(ctx context.Context, status string) ([]types.Order, error)
	// ClosePosition liquidates the full position for a symbol.
	ClosePosition(ctx context.Context, symbol string) (types.Order, error)
	Close() error
}
