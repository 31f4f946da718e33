package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountInfo is a read-through snapshot of the brokerage account. It is
// refreshed wholesale once per cycle and never locally mutated.
type AccountInfo struct {
	// Status is the brokerage-reported account status.
	Status string `json:"status"`
	// Equity is the total account value.
	Equity decimal.Decimal `json:"equity"`
	// Cash is the settled cash balance.
	Cash decimal.Decimal `json:"cash"`
	// BuyingPower is the available amount for new purchases.
	BuyingPower decimal.Decimal `json:"buying_power"`
	// InitialMargin is the margin requirement for open positions and orders.
	InitialMargin decimal.Decimal `json:"initial_margin"`
	// MaintenanceMargin is the minimum equity required to keep positions open.
	MaintenanceMargin decimal.Decimal `json:"maintenance_margin"`
}

// Position is a read-through snapshot of one open brokerage position.
// Qty is signed: positive for long, negative for short.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
}

// Long reports whether the position is long.
func (p Position) Long() bool {
	return p.Qty.IsPositive()
}

// Clock is the brokerage market clock.
type Clock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}
