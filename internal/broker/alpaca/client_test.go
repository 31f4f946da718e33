package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

type ClientTestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *Client
	requests []*http.Request
	handler  func(w http.ResponseWriter, r *http.Request)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.requests = nil
	s.handler = nil

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.handler(w, r)
	}))

	client, err := New(Options{
		APIKey:      "test-key",
		APISecret:   "test-secret",
		Paper:       true,
		BaseURL:     s.server.URL,
		DataBaseURL: s.server.URL,
		Retry:       broker.RetryConfig{MaxAttempts: 1, Base: 2, Min: time.Millisecond, Max: time.Millisecond},
	}, logger.NewNop())
	s.Require().NoError(err)
	s.client = client
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) respondJSON(v any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		s.Require().NoError(json.NewEncoder(w).Encode(v))
	}
}

func (s *ClientTestSuite) TestNew_MissingCredentials() {
	s.T().Setenv("ALPACA_KEY", "")
	s.T().Setenv("ALPACA_SECRET", "")

	_, err := New(Options{
		APIKey:      "",
		APISecret:   "",
		Paper:       true,
		BaseURL:     "",
		DataBaseURL: "",
		Retry:       broker.RetryConfig{MaxAttempts: 1, Base: 2, Min: time.Millisecond, Max: time.Millisecond},
	}, logger.NewNop())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))
}

func (s *ClientTestSuite) TestGetAccount() {
	s.handler = s.respondJSON(map[string]any{
		"status":             "ACTIVE",
		"equity":             "10000.50",
		"cash":               "5000.25",
		"buying_power":       "20001.00",
		"initial_margin":     "0",
		"maintenance_margin": "0",
	})

	account, err := s.client.GetAccount(context.Background())
	s.Require().NoError(err)

	s.Equal("ACTIVE", account.Status)
	s.Equal("10000.5", account.Equity.String())
	s.Equal("5000.25", account.Cash.String())

	s.Require().NotEmpty(s.requests)
	req := s.requests[0]
	s.Equal("/v2/account", req.URL.Path)
	s.Equal("test-key", req.Header.Get("APCA-API-KEY-ID"))
	s.Equal("test-secret", req.Header.Get("APCA-API-SECRET-KEY"))
}

func (s *ClientTestSuite) TestGetClock() {
	s.handler = s.respondJSON(map[string]any{
		"timestamp":  "2024-06-03T14:30:00Z",
		"is_open":    true,
		"next_open":  "2024-06-04T13:30:00Z",
		"next_close": "2024-06-03T20:00:00Z",
	})

	clock, err := s.client.GetClock(context.Background())
	s.Require().NoError(err)
	s.True(clock.IsOpen)
	s.Equal(2024, clock.Timestamp.Year())
}

func (s *ClientTestSuite) TestGetBars() {
	s.handler = s.respondJSON(map[string]any{
		"symbol": "AAPL",
		"bars": []map[string]any{
			{"t": "2024-06-03T14:30:00Z", "o": 100.0, "h": 101.0, "l": 99.0, "c": 100.5, "v": 1200},
			{"t": "2024-06-03T14:31:00Z", "o": 100.5, "h": 102.0, "l": 100.0, "c": 101.5, "v": 900},
		},
		"next_page_token": nil,
	})

	raw, err := s.client.GetBars(context.Background(), broker.BarRequest{
		Symbol:    "AAPL",
		Timeframe: types.Timeframe1Min,
		Limit:     100,
		Feed:      broker.FeedSIP,
		End:       optional.None[time.Time](),
	})
	s.Require().NoError(err)
	s.Require().Len(raw, 2)

	s.Equal(100.5, raw[0].Columns["close"])
	s.Equal(1200.0, raw[0].Columns["volume"])

	req := s.requests[0]
	s.Equal("/v2/stocks/AAPL/bars", req.URL.Path)
	s.Equal("1Min", req.URL.Query().Get("timeframe"))
	s.Equal("sip", req.URL.Query().Get("feed"))
	s.Equal("100", req.URL.Query().Get("limit"))
}

func (s *ClientTestSuite) TestGetBarsTimeframeMapping() {
	s.handler = s.respondJSON(map[string]any{"symbol": "AAPL", "bars": []map[string]any{}, "next_page_token": nil})

	_, err := s.client.GetBars(context.Background(), broker.BarRequest{
		Symbol:    "AAPL",
		Timeframe: types.Timeframe1H,
		Limit:     10,
		Feed:      broker.FeedDefault,
		End:       optional.Some(time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)),
	})
	s.Require().NoError(err)

	query := s.requests[0].URL.Query()
	s.Equal("1Hour", query.Get("timeframe"))
	s.Empty(query.Get("feed"), "default feed sends no feed parameter")
	s.Equal("2024-06-03T14:00:00Z", query.Get("end"))
}

func (s *ClientTestSuite) TestCreateOrder() {
	s.handler = s.respondJSON(map[string]any{
		"id":              "abc123",
		"client_order_id": "11111111-1111-1111-1111-111111111111",
		"symbol":          "AAPL",
		"qty":             "40",
		"filled_qty":      "0",
		"side":            "buy",
		"type":            "market",
		"time_in_force":   "day",
		"status":          "accepted",
		"created_at":      "2024-06-03T14:30:00Z",
	})

	order, err := s.client.CreateOrder(context.Background(), types.OrderRequest{
		ClientOrderID: "11111111-1111-1111-1111-111111111111",
		Symbol:        "AAPL",
		Qty:           40,
		Side:          types.OrderSideBuy,
		Type:          types.OrderTypeMarket,
		TimeInForce:   types.TimeInForceDay,
		LimitPrice:    optional.None[float64](),
		StopPrice:     optional.None[float64](),
	})
	s.Require().NoError(err)

	s.Equal("abc123", order.ID)
	s.Equal(int64(40), order.Qty)
	s.Equal(types.OrderStatusAccepted, order.Status)

	req := s.requests[0]
	s.Equal(http.MethodPost, req.Method)
	s.Equal("/v2/orders", req.URL.Path)
}

func (s *ClientTestSuite) TestCreateOrderRejectsInvalidRequest() {
	s.handler = s.respondJSON(map[string]any{})

	// Stop order without a stop price never reaches the wire.
	_, err := s.client.CreateOrder(context.Background(), types.OrderRequest{
		ClientOrderID: "11111111-1111-1111-1111-111111111111",
		Symbol:        "AAPL",
		Qty:           40,
		Side:          types.OrderSideSell,
		Type:          types.OrderTypeStop,
		TimeInForce:   types.TimeInForceGTC,
		LimitPrice:    optional.None[float64](),
		StopPrice:     optional.None[float64](),
	})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
	s.Empty(s.requests)
}

func (s *ClientTestSuite) TestHTTPErrorSurfacesAsBrokerError() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	}

	_, err := s.client.GetAccount(context.Background())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeRetriesExhausted))
}

func (s *ClientTestSuite) TestClosePosition() {
	s.handler = s.respondJSON(map[string]any{
		"id":              "liq-1",
		"client_order_id": "",
		"symbol":          "AAPL",
		"qty":             "40",
		"filled_qty":      "0",
		"side":            "sell",
		"type":            "market",
		"time_in_force":   "day",
		"status":          "accepted",
		"created_at":      "2024-06-03T14:30:00Z",
	})

	order, err := s.client.ClosePosition(context.Background(), "AAPL")
	s.Require().NoError(err)
	s.Equal("liq-1", order.ID)

	req := s.requests[0]
	s.Equal(http.MethodDelete, req.Method)
	s.Equal("/v2/positions/AAPL", req.URL.Path)
}
