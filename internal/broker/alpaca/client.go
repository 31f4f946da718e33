// Package alpaca implements the broker capability against the Alpaca trading
// and market data REST APIs.
package alpaca

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

const (
	// DefaultPaperBaseURL is the paper trading API endpoint.
	DefaultPaperBaseURL = "https://paper-api.alpaca.markets"
	// DefaultLiveBaseURL is the live trading API endpoint.
	DefaultLiveBaseURL = "https://api.alpaca.markets"
	// DefaultDataBaseURL is the market data API endpoint.
	DefaultDataBaseURL = "https://data.alpaca.markets"

	keyEnvVar    = "ALPACA_KEY"
	secretEnvVar = "ALPACA_SECRET"
)

// Options configures the Alpaca client. Empty credentials fall back to the
// ALPACA_KEY and ALPACA_SECRET environment variables.
type Options struct {
	APIKey      string
	APISecret   string
	Paper       bool
	BaseURL     string
	DataBaseURL string
	Retry       broker.RetryConfig
}

// Client talks to the Alpaca trading and market data APIs. It implements
// broker.Broker.
type Client struct {
	trading *resty.Client
	data    *resty.Client
	retry   broker.RetryConfig
	log     *logger.Logger
}

// New creates an Alpaca client. Missing credentials are the only fatal
// construction error; everything after construction degrades per call.
func New(opts Options, log *logger.Logger) (*Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(keyEnvVar)
	}

	apiSecret := opts.APISecret
	if apiSecret == "" {
		apiSecret = os.Getenv(secretEnvVar)
	}

	if apiKey == "" || apiSecret == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "api key and secret must be provided or set in the environment")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		if opts.Paper {
			baseURL = DefaultPaperBaseURL
		} else {
			baseURL = DefaultLiveBaseURL
		}
	}

	dataBaseURL := opts.DataBaseURL
	if dataBaseURL == "" {
		dataBaseURL = DefaultDataBaseURL
	}

	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = broker.DefaultRetryConfig()
	}

	newRestyClient := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetHeader("APCA-API-KEY-ID", apiKey).
			SetHeader("APCA-API-SECRET-KEY", apiSecret).
			SetTimeout(30 * time.Second)
	}

	log.Info("alpaca client initialized", zap.String("base_url", baseURL))

	return &Client{
		trading: newRestyClient(baseURL),
		data:    newRestyClient(dataBaseURL),
		retry:   retry,
		log:     log,
	}, nil
}

// Name implements the bar source naming contract.
func (c *Client) Name() string {
	return "alpaca"
}

// VerifyConnection checks API reachability by fetching the account and emits
// the connection_success or connection_failure event.
func (c *Client) VerifyConnection(ctx context.Context) error {
	account, err := c.GetAccount(ctx)
	if err != nil {
		c.log.ErrorEvent(logger.EventConnectionFailure, map[string]any{
			"error": err.Error(),
		})

		return err
	}

	c.log.Event(logger.EventConnectionSuccess, map[string]any{
		"account_status": account.Status,
		"buying_power":   account.BuyingPower.InexactFloat64(),
	})

	return nil
}

// GetAccount implements broker.Broker.
func (c *Client) GetAccount(ctx context.Context) (types.AccountInfo, error) {
	return broker.Retry(ctx, c.log, c.retry, "get_account", func() (types.AccountInfo, error) {
		var payload accountPayload

		resp, err := c.trading.R().
			SetContext(ctx).
			SetResult(&payload).
			Get("/v2/account")
		if err := checkResponse(resp, err); err != nil {
			return types.AccountInfo{}, err
		}

		return payload.toAccountInfo(), nil
	})
}

// GetClock implements broker.Broker.
func (c *Client) GetClock(ctx context.Context) (types.Clock, error) {
	return broker.Retry(ctx, c.log, c.retry, "get_clock", func() (types.Clock, error) {
		var payload clockPayload

		resp, err := c.trading.R().
			SetContext(ctx).
			SetResult(&payload).
			Get("/v2/clock")
		if err := checkResponse(resp, err); err != nil {
			return types.Clock{}, err
		}

		return payload.toClock(), nil
	})
}

// ListPositions implements broker.Broker.
func (c *Client) ListPositions(ctx context.Context) ([]types.Position, error) {
	return broker.Retry(ctx, c.log, c.retry, "list_positions", func() ([]types.Position, error) {
		var payload []positionPayload

		resp, err := c.trading.R().
			SetContext(ctx).
			SetResult(&payload).
			Get("/v2/positions")
		if err := checkResponse(resp, err); err != nil {
			return nil, err
		}

		positions := make([]types.Position, len(payload))
		for i, p := range payload {
			positions[i] = p.toPosition()
		}

		return positions, nil
	})
}

// GetBars implements broker.Broker and the market data source contract. It
// performs a single attempt: retry and fallback policy for bar fetches is
// owned by the resilient fetcher.
func (c *Client) GetBars(ctx context.Context, req broker.BarRequest) ([]types.RawBar, error) {
	params := map[string]string{
		"timeframe": apiTimeframe(req.Timeframe),
		"limit":     fmt.Sprintf("%d", req.Limit),
	}
	if req.Feed != broker.FeedDefault {
		params["feed"] = string(req.Feed)
	}

	if req.End.IsSome() {
		params["end"] = req.End.Unwrap().UTC().Format(time.RFC3339)
	}

	var payload barsPayload

	resp, err := c.data.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&payload).
		Get(fmt.Sprintf("/v2/stocks/%s/bars", req.Symbol))
	if err := checkResponse(resp, err); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "bars fetch failed for %s", req.Symbol)
	}

	raw := make([]types.RawBar, len(payload.Bars))
	for i, bar := range payload.Bars {
		raw[i] = bar.toRawBar()
	}

	return raw, nil
}

// CreateOrder implements broker.Broker. It emits order_attempt before
// submission and order_submitted or order_submission_failed after.
func (c *Client) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	c.log.Event(logger.EventOrderAttempt, map[string]any{
		"symbol":        req.Symbol,
		"quantity":      req.Qty,
		"side":          string(req.Side),
		"type":          string(req.Type),
		"time_in_force": string(req.TimeInForce),
	})

	order, err := broker.Retry(ctx, c.log, c.retry, "create_order", func() (types.Order, error) {
		var payload orderPayload

		resp, restErr := c.trading.R().
			SetContext(ctx).
			SetBody(newOrderBody(req)).
			SetResult(&payload).
			Post("/v2/orders")
		if err := checkResponse(resp, restErr); err != nil {
			return types.Order{}, err
		}

		return payload.toOrder(), nil
	})
	if err != nil {
		c.log.ErrorEvent(logger.EventOrderSubmissionFailed, map[string]any{
			"symbol":   req.Symbol,
			"quantity": req.Qty,
			"side":     string(req.Side),
			"error":    err.Error(),
		})

		return types.Order{}, err
	}

	c.log.Event(logger.EventOrderSubmitted, map[string]any{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"quantity": order.Qty,
		"side":     string(order.Side),
		"status":   string(order.Status),
	})

	return order, nil
}

// ListOrders implements broker.Broker.
func (c *Client) ListOrders(ctx context.Context, status string) ([]types.Order, error) {
	return broker.Retry(ctx, c.log, c.retry, "list_orders", func() ([]types.Order, error) {
		var payload []orderPayload

		resp, err := c.trading.R().
			SetContext(ctx).
			SetQueryParam("status", status).
			SetResult(&payload).
			Get("/v2/orders")
		if err := checkResponse(resp, err); err != nil {
			return nil, err
		}

		orders := make([]types.Order, len(payload))
		for i, o := range payload {
			orders[i] = o.toOrder()
		}

		return orders, nil
	})
}

// ClosePosition implements broker.Broker. The brokerage answers with the
// liquidation order it created.
func (c *Client) ClosePosition(ctx context.Context, symbol string) (types.Order, error) {
	return broker.Retry(ctx, c.log, c.retry, "close_position", func() (types.Order, error) {
		var payload orderPayload

		resp, err := c.trading.R().
			SetContext(ctx).
			SetResult(&payload).
			Delete(fmt.Sprintf("/v2/positions/%s", symbol))
		if err := checkResponse(resp, err); err != nil {
			return types.Order{}, err
		}

		return payload.toOrder(), nil
	})
}

// Close implements broker.Broker. The REST clients hold no resources beyond
// pooled connections.
func (c *Client) Close() error {
	return nil
}

// apiTimeframe maps the internal timeframe to Alpaca's timeframe parameter.
func apiTimeframe(tf types.Timeframe) string {
	switch tf {
	case types.Timeframe1H:
		return "1Hour"
	case types.Timeframe1D:
		return "1Day"
	default:
		return string(tf)
	}
}

// checkResponse folds transport errors and HTTP error statuses into one error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeBrokerCallFailed, "alpaca api returned %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// newOrderBody builds the order submission payload. Prices are rendered as
// strings the way the API expects.
func newOrderBody(req types.OrderRequest) map[string]any {
	body := map[string]any{
		"symbol":          req.Symbol,
		"qty":             fmt.Sprintf("%d", req.Qty),
		"side":            string(req.Side),
		"type":            string(req.Type),
		"time_in_force":   string(req.TimeInForce),
		"client_order_id": req.ClientOrderID,
	}

	if req.LimitPrice.IsSome() {
		body["limit_price"] = decimal.NewFromFloat(req.LimitPrice.Unwrap()).String()
	}

	if req.StopPrice.IsSome() {
		body["stop_price"] = decimal.NewFromFloat(req.StopPrice.Unwrap()).String()
	}

	return body
}
