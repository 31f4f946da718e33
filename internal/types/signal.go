package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// SignalAction is the action a strategy recommends for a symbol.
type SignalAction string

const (
	// SignalActionBuy opens a new long position.
	SignalActionBuy SignalAction = "buy"
	// SignalActionSell closes an existing position on a bearish signal.
	SignalActionSell SignalAction = "sell"
	// SignalActionExit closes an existing position unconditionally.
	SignalActionExit SignalAction = "exit"
	// SignalActionNone means no trade this cycle.
	SignalActionNone SignalAction = "none"
)

// Signal is the outcome of one strategy analysis for one symbol. It is
// ephemeral: the orchestrator consumes it within the same cycle.
type Signal struct {
	// Time is when the signal was generated.
	Time time.Time `json:"time"`
	// Symbol is the symbol the signal applies to.
	Symbol string `json:"symbol"`
	// Action is the recommended action.
	Action SignalAction `json:"action"`
	// Price is the suggested entry price. None when the action carries no entry.
	Price optional.Option[float64] `json:"price"`
	// StopLoss is the protective stop price for buy signals. None when absent.
	StopLoss optional.Option[float64] `json:"stop_loss"`
	// Reason is a human-readable explanation for the signal.
	Reason string `json:"reason"`
	// Metrics carries strategy-specific diagnostic values.
	Metrics map[string]float64 `json:"metrics"`
	// Strategy is the name of the strategy that produced the signal.
	Strategy string `json:"strategy"`
}

// Actionable reports whether the signal should be translated into an order.
func (s Signal) Actionable() bool {
	switch s.Action {
	case SignalActionBuy, SignalActionSell, SignalActionExit:
		return true
	default:
		return false
	}
}
