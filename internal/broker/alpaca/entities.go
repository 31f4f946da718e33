package alpaca

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/helios-trade/helios/internal/types"
)

// Wire payloads for the Alpaca REST APIs. Monetary fields arrive as quoted
// decimal strings; decimal.Decimal unmarshals both quoted and bare numbers.

type accountPayload struct {
	Status            string          `json:"status"`
	Equity            decimal.Decimal `json:"equity"`
	Cash              decimal.Decimal `json:"cash"`
	BuyingPower       decimal.Decimal `json:"buying_power"`
	InitialMargin     decimal.Decimal `json:"initial_margin"`
	MaintenanceMargin decimal.Decimal `json:"maintenance_margin"`
}

func (p accountPayload) toAccountInfo() types.AccountInfo {
	return types.AccountInfo{
		Status:            p.Status,
		Equity:            p.Equity,
		Cash:              p.Cash,
		BuyingPower:       p.BuyingPower,
		InitialMargin:     p.InitialMargin,
		MaintenanceMargin: p.MaintenanceMargin,
	}
}

type clockPayload struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

func (p clockPayload) toClock() types.Clock {
	return types.Clock{
		Timestamp: p.Timestamp,
		IsOpen:    p.IsOpen,
		NextOpen:  p.NextOpen,
		NextClose: p.NextClose,
	}
}

type positionPayload struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
}

func (p positionPayload) toPosition() types.Position {
	return types.Position{
		Symbol:        p.Symbol,
		Qty:           p.Qty,
		AvgEntryPrice: p.AvgEntryPrice,
		MarketValue:   p.MarketValue,
		UnrealizedPL:  p.UnrealizedPL,
		CurrentPrice:  p.CurrentPrice,
	}
}

type orderPayload struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id"`
	Symbol         string           `json:"symbol"`
	Qty            decimal.Decimal  `json:"qty"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price"`
	Side           string           `json:"side"`
	Type           string           `json:"type"`
	TimeInForce    string           `json:"time_in_force"`
	LimitPrice     *decimal.Decimal `json:"limit_price"`
	StopPrice      *decimal.Decimal `json:"stop_price"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	FilledAt       *time.Time       `json:"filled_at"`
}

func (p orderPayload) toOrder() types.Order {
	order := types.Order{
		ID:             p.ID,
		ClientOrderID:  p.ClientOrderID,
		Symbol:         p.Symbol,
		Qty:            p.Qty.IntPart(),
		FilledQty:      p.FilledQty.IntPart(),
		FilledAvgPrice: optional.None[float64](),
		Side:           types.OrderSide(p.Side),
		Type:           types.OrderType(p.Type),
		TimeInForce:    types.TimeInForce(p.TimeInForce),
		LimitPrice:     optional.None[float64](),
		StopPrice:      optional.None[float64](),
		Status:         types.OrderStatus(p.Status),
		CreatedAt:      p.CreatedAt,
		FilledAt:       optional.None[time.Time](),
	}

	if p.FilledAvgPrice != nil {
		order.FilledAvgPrice = optional.Some(p.FilledAvgPrice.InexactFloat64())
	}

	if p.LimitPrice != nil {
		order.LimitPrice = optional.Some(p.LimitPrice.InexactFloat64())
	}

	if p.StopPrice != nil {
		order.StopPrice = optional.Some(p.StopPrice.InexactFloat64())
	}

	if p.FilledAt != nil {
		order.FilledAt = optional.Some(*p.FilledAt)
	}

	return order
}

type barPayload struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

func (p barPayload) toRawBar() types.RawBar {
	return types.RawBar{
		Time: p.Timestamp,
		Columns: map[string]float64{
			"open":   p.Open,
			"high":   p.High,
			"low":    p.Low,
			"close":  p.Close,
			"volume": p.Volume,
		},
	}
}

type barsPayload struct {
	Symbol        string       `json:"symbol"`
	Bars          []barPayload `json:"bars"`
	NextPageToken *string      `json:"next_page_token"`
}
