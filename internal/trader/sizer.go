package trader

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/pkg/errors"
)

// Sizer converts account equity and a risk fraction into whole-share order
// quantities.
type Sizer struct {
	riskPerTrade decimal.Decimal
	log          *logger.Logger
}

// NewSizer creates a Sizer risking the given fraction of equity per trade.
// The fraction must be in (0, 1].
func NewSizer(riskPerTrade float64, log *logger.Logger) (*Sizer, error) {
	if riskPerTrade <= 0 || riskPerTrade > 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidRisk, "risk per trade must be in (0, 1], got %v", riskPerTrade)
	}

	return &Sizer{
		riskPerTrade: decimal.NewFromFloat(riskPerTrade),
		log:          log,
	}, nil
}

// Quantity returns the whole-share quantity such that losing the distance
// from entry to stop on every share costs at most the configured fraction of
// equity. A non-positive result rejects the trade rather than rounding up.
func (s *Sizer) Quantity(equity decimal.Decimal, entryPrice, stopPrice float64) (int64, error) {
	entry := decimal.NewFromFloat(entryPrice)
	stop := decimal.NewFromFloat(stopPrice)

	perShare := entry.Sub(stop).Abs()
	if !perShare.IsPositive() {
		return 0, errors.Newf(errors.ErrCodeInvalidQuantity, "entry price %v equals stop price %v", entryPrice, stopPrice)
	}

	riskBudget := equity.Mul(s.riskPerTrade)
	qty := riskBudget.Div(perShare).IntPart()

	if qty <= 0 {
		s.log.Warn("position size rounds to zero shares",
			zap.String("risk_budget", riskBudget.String()),
			zap.String("per_share_risk", perShare.String()),
		)

		return 0, errors.Newf(errors.ErrCodeInvalidQuantity, "risk budget %s buys zero shares at %s risk per share", riskBudget.String(), perShare.String())
	}

	return qty, nil
}
