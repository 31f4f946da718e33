// Package trader implements the trading cycle orchestrator: the single
// control flow that turns market data and strategy signals into sized orders.
package trader

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/journal"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/market"
	"github.com/helios-trade/helios/internal/strategy"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// marketClosedBackoff is how long the loop sleeps when the market is closed
// before re-checking the clock. The wait does not count as a cycle.
const marketClosedBackoff = 5 * time.Minute

// Config controls the orchestrator loop.
type Config struct {
	// Symbols is the tracked symbol universe.
	Symbols []string
	// MaxPositions caps concurrently open positions.
	MaxPositions int
	// MarketHoursOnly gates trading on the brokerage clock.
	MarketHoursOnly bool
	// Cooldown is the wait between cycles.
	Cooldown time.Duration
}

// Snapshot is the orchestrator state exposed to the status server.
type Snapshot struct {
	Account    types.AccountInfo `json:"account"`
	Positions  []types.Position  `json:"positions"`
	Cycles     int64             `json:"cycles"`
	LastCycle  time.Time         `json:"last_cycle"`
	OrderCount int64             `json:"order_count"`
}

// Trader runs the trading loop. One cycle runs to completion before the next
// begins; the stop signal is observed only at cycle boundaries.
type Trader struct {
	broker     broker.Broker
	provider   *market.Provider
	strategies []strategy.Strategy
	sizer      *Sizer
	journal    *journal.Journal
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	snapshot Snapshot
}

// New creates a Trader. The journal may be nil; journaling is best-effort
// either way.
func New(b broker.Broker, provider *market.Provider, strategies []strategy.Strategy, sizer *Sizer, jnl *journal.Journal, config Config, log *logger.Logger) *Trader {
	return &Trader{
		broker:     b,
		provider:   provider,
		strategies: strategies,
		sizer:      sizer,
		journal:    jnl,
		config:     config,
		log:        log,
		mu:         sync.Mutex{},
		snapshot:   Snapshot{Account: types.AccountInfo{}, Positions: nil, Cycles: 0, LastCycle: time.Time{}, OrderCount: 0},
	}
}

// Snapshot returns a copy of the current orchestrator state.
func (t *Trader) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.snapshot
	snapshot.Positions = append([]types.Position(nil), t.snapshot.Positions...)

	return snapshot
}

// Run executes the trading loop until the context is canceled. An in-flight
// cycle always finishes; cancellation is honored at the loop boundaries.
func (t *Trader) Run(ctx context.Context) error {
	t.log.Info("trading loop starting",
		zap.Strings("symbols", t.config.Symbols),
		zap.Int("max_positions", t.config.MaxPositions),
		zap.Duration("cooldown", t.config.Cooldown),
	)

	// Initial state refresh so the first cycle starts from known ground.
	if _, _, err := t.refresh(ctx); err != nil {
		t.log.Warn("initial state refresh failed", zap.Error(err))
	}

	defer t.cleanup()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("stop requested, exiting trading loop")

			return nil
		default:
		}

		if t.config.MarketHoursOnly {
			open, err := t.marketOpen(ctx)
			if err != nil {
				t.log.Warn("clock check failed, treating market as closed", zap.Error(err))
			}

			if !open {
				t.log.Info("market closed, waiting", zap.Duration("backoff", marketClosedBackoff))

				if !sleepCtx(ctx, marketClosedBackoff) {
					return nil
				}

				continue
			}
		}

		t.cycle(ctx)

		if !sleepCtx(ctx, t.config.Cooldown) {
			return nil
		}
	}
}

// cycle runs one pass: refresh state, compute slots, analyze and execute.
// Nothing inside a cycle terminates the loop.
func (t *Trader) cycle(ctx context.Context) {
	cycleStart := time.Now()

	account, positions, err := t.refresh(ctx)
	if err != nil {
		t.log.Warn("state refresh failed, skipping cycle", zap.Error(err))

		return
	}

	t.mu.Lock()
	t.snapshot.Cycles++
	t.snapshot.LastCycle = cycleStart
	t.mu.Unlock()

	slots := t.config.MaxPositions - len(positions)
	if slots < 0 {
		slots = 0
	}

	if slots == 0 {
		t.log.Info("position cap reached, skipping analysis",
			zap.Int("max_positions", t.config.MaxPositions),
			zap.Int("open_positions", len(positions)),
		)

		return
	}

	held := make(map[string]types.Position, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = pos
	}

	candidates := make([]string, 0, len(t.config.Symbols))

	for _, symbol := range t.config.Symbols {
		if _, ok := held[symbol]; ok {
			continue
		}

		candidates = append(candidates, symbol)
	}

	for _, strat := range t.strategies {
		req := strat.RequiredData()
		data := t.provider.GetBars(ctx, candidates, req.Timeframe, req.LookbackBars, req.MinRequiredBars)

		for _, symbol := range candidates {
			series, ok := data[symbol]
			if !ok || series.Empty() {
				continue
			}

			signal, err := t.analyzeSafe(ctx, strat, symbol, series)
			if err != nil {
				t.log.Error("strategy analysis failed",
					zap.String("strategy", strat.Name()),
					zap.String("symbol", symbol),
					zap.Error(err),
				)

				continue
			}

			if !signal.Actionable() {
				continue
			}

			if t.executeSignal(ctx, signal, account) {
				slots--
				if slots == 0 {
					t.log.Info("all position slots filled, ending cycle early")

					return
				}
			}
		}
	}
}

// refresh pulls fresh account and position snapshots from the brokerage and
// publishes them for the status server.
func (t *Trader) refresh(ctx context.Context) (types.AccountInfo, []types.Position, error) {
	account, err := t.broker.GetAccount(ctx)
	if err != nil {
		return types.AccountInfo{}, nil, err
	}

	positions, err := t.broker.ListPositions(ctx)
	if err != nil {
		return types.AccountInfo{}, nil, err
	}

	t.mu.Lock()
	t.snapshot.Account = account
	t.snapshot.Positions = append([]types.Position(nil), positions...)
	t.mu.Unlock()

	return account, positions, nil
}

// marketOpen checks the brokerage clock.
func (t *Trader) marketOpen(ctx context.Context) (bool, error) {
	clock, err := t.broker.GetClock(ctx)
	if err != nil {
		return false, err
	}

	return clock.IsOpen, nil
}

// analyzeSafe isolates a strategy fault: a panicking strategy yields an error
// instead of taking down the cycle.
func (t *Trader) analyzeSafe(ctx context.Context, strat strategy.Strategy, symbol string, series types.BarSeries) (signal types.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked on %s: %v", strat.Name(), symbol, r)
		}
	}()

	return strat.Analyze(ctx, symbol, series)
}

// executeSignal translates an actionable signal into orders. It reports
// whether an order was submitted; every submitted order consumes one slot for
// the remainder of the cycle.
func (t *Trader) executeSignal(ctx context.Context, signal types.Signal, account types.AccountInfo) bool {
	t.recordSignal(signal)

	switch signal.Action {
	case types.SignalActionBuy:
		return t.enterPosition(ctx, signal, account)
	case types.SignalActionSell, types.SignalActionExit:
		return t.closePosition(ctx, signal)
	case types.SignalActionNone:
		return false
	default:
		return false
	}
}

// enterPosition sizes and submits a market buy, then attaches a protective
// good-till-canceled stop sell. The stop order's failure never unwinds the
// buy; the position simply runs unprotected until the operator intervenes.
func (t *Trader) enterPosition(ctx context.Context, signal types.Signal, account types.AccountInfo) bool {
	if signal.Price.IsNone() || signal.StopLoss.IsNone() {
		t.log.Warn("buy signal missing entry or stop price, rejecting",
			zap.String("symbol", signal.Symbol),
			zap.String("strategy", signal.Strategy),
		)

		return false
	}

	entry := signal.Price.Unwrap()
	stop := signal.StopLoss.Unwrap()

	qty, err := t.sizer.Quantity(account.Equity, entry, stop)
	if err != nil {
		t.log.Warn("position sizing rejected trade",
			zap.String("symbol", signal.Symbol),
			zap.Float64("entry", entry),
			zap.Float64("stop", stop),
			zap.Error(err),
		)

		return false
	}

	buy, err := t.broker.CreateOrder(ctx, types.OrderRequest{
		ClientOrderID: uuid.New().String(),
		Symbol:        signal.Symbol,
		Qty:           qty,
		Side:          types.OrderSideBuy,
		Type:          types.OrderTypeMarket,
		TimeInForce:   types.TimeInForceDay,
		LimitPrice:    optional.None[float64](),
		StopPrice:     optional.None[float64](),
	})
	if err != nil {
		t.log.Error("buy order failed",
			zap.String("symbol", signal.Symbol),
			zap.Int64("quantity", qty),
			zap.Error(err),
		)

		return false
	}

	t.recordOrder(buy, signal.Strategy)

	stopOrder, err := t.broker.CreateOrder(ctx, types.OrderRequest{
		ClientOrderID: uuid.New().String(),
		Symbol:        signal.Symbol,
		Qty:           qty,
		Side:          types.OrderSideSell,
		Type:          types.OrderTypeStop,
		TimeInForce:   types.TimeInForceGTC,
		LimitPrice:    optional.None[float64](),
		StopPrice:     optional.Some(stop),
	})
	if err != nil {
		t.log.Error("protective stop order failed, position is unprotected",
			zap.String("symbol", signal.Symbol),
			zap.String("buy_order_id", buy.ID),
			zap.Float64("stop_price", stop),
			zap.Error(err),
		)
	} else {
		t.recordOrder(stopOrder, signal.Strategy)
	}

	return true
}

// closePosition liquidates the symbol's position outright. It reports whether
// the liquidation order was submitted.
func (t *Trader) closePosition(ctx context.Context, signal types.Signal) bool {
	order, err := t.broker.ClosePosition(ctx, signal.Symbol)
	if err != nil {
		t.log.Error("position close failed",
			zap.String("symbol", signal.Symbol),
			zap.String("strategy", signal.Strategy),
			zap.Error(err),
		)

		return false
	}

	t.log.Info("position closed",
		zap.String("symbol", signal.Symbol),
		zap.String("order_id", order.ID),
	)
	t.recordOrder(order, signal.Strategy)

	return true
}

func (t *Trader) recordSignal(signal types.Signal) {
	if t.journal == nil {
		return
	}

	if err := t.journal.RecordSignal(signal); err != nil {
		t.log.Warn("journal write failed", zap.Error(err))
	}
}

func (t *Trader) recordOrder(order types.Order, strategyName string) {
	t.mu.Lock()
	t.snapshot.OrderCount++
	t.mu.Unlock()

	if t.journal == nil {
		return
	}

	if err := t.journal.RecordOrder(order, strategyName); err != nil {
		t.log.Warn("journal write failed", zap.Error(err))
	}
}

// cleanup releases collaborators after the loop exits.
func (t *Trader) cleanup() {
	t.provider.Clear()

	if t.journal != nil {
		if err := t.journal.Close(); err != nil {
			t.log.Warn("journal close failed", zap.Error(err))
		}
	}

	if err := t.broker.Close(); err != nil {
		t.log.Warn("broker close failed", zap.Error(err))
	}

	t.log.Info("trading loop cleanup complete")
}

// sleepCtx waits for the duration or the context, whichever ends first. It
// reports false when the context was canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
