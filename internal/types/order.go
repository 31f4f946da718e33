package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/helios-trade/helios/pkg/errors"
)

// OrderSide is the direction of an order.
type OrderSide string

// OrderType is the execution type of an order.
type OrderType string

// TimeInForce controls how long an order remains active.
type TimeInForce string

// OrderStatus is the brokerage-reported order state.
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
)

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// OrderRequest describes an order to submit to the brokerage. The orchestrator
// creates it; the brokerage owns the resulting order thereafter.
type OrderRequest struct {
	ClientOrderID string      `json:"client_order_id" yaml:"client_order_id" validate:"required,uuid"`
	Symbol        string      `json:"symbol" yaml:"symbol" validate:"required"`
	Qty           int64       `json:"qty" yaml:"qty" validate:"required,gt=0"`
	Side          OrderSide   `json:"side" yaml:"side" validate:"required,oneof=buy sell"`
	Type          OrderType   `json:"type" yaml:"type" validate:"required,oneof=market limit stop"`
	TimeInForce   TimeInForce `json:"time_in_force" yaml:"time_in_force" validate:"required,oneof=day gtc"`
	// LimitPrice is required for limit orders.
	LimitPrice optional.Option[float64] `json:"limit_price" yaml:"limit_price"`
	// StopPrice is required for stop orders.
	StopPrice optional.Option[float64] `json:"stop_price" yaml:"stop_price"`
}

// Validate checks the order request fields before submission.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if r.Type == OrderTypeLimit && r.LimitPrice.IsNone() {
		return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a limit price")
	}

	if r.Type == OrderTypeStop && r.StopPrice.IsNone() {
		return errors.New(errors.ErrCodeInvalidOrder, "stop order requires a stop price")
	}

	return nil
}

// Order is the brokerage's view of a submitted order. The orchestrator never
// re-submits on a previously returned ID.
type Order struct {
	ID             string                     `json:"id"`
	ClientOrderID  string                     `json:"client_order_id"`
	Symbol         string                     `json:"symbol"`
	Qty            int64                      `json:"qty"`
	FilledQty      int64                      `json:"filled_qty"`
	FilledAvgPrice optional.Option[float64]   `json:"filled_avg_price"`
	Side           OrderSide                  `json:"side"`
	Type           OrderType                  `json:"type"`
	TimeInForce    TimeInForce                `json:"time_in_force"`
	LimitPrice     optional.Option[float64]   `json:"limit_price"`
	StopPrice      optional.Option[float64]   `json:"stop_price"`
	Status         OrderStatus                `json:"status"`
	CreatedAt      time.Time                  `json:"created_at"`
	FilledAt       optional.Option[time.Time] `json:"filled_at"`
}
