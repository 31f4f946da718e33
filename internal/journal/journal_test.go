package journal

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
)

type JournalTestSuite struct {
	suite.Suite
	journal *Journal
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (s *JournalTestSuite) SetupTest() {
	j, err := Open(":memory:", logger.NewNop())
	s.Require().NoError(err)
	s.journal = j
}

func (s *JournalTestSuite) TearDownTest() {
	s.Require().NoError(s.journal.Close())
}

func (s *JournalTestSuite) TestRecordSignal() {
	signal := types.Signal{
		Time:     time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
		Symbol:   "AAPL",
		Action:   types.SignalActionBuy,
		Price:    optional.Some(100.0),
		StopLoss: optional.Some(95.0),
		Reason:   "golden cross",
		Metrics:  map[string]float64{"latest_close": 100},
		Strategy: "ma_crossover_5_20",
	}

	s.Require().NoError(s.journal.RecordSignal(signal))
}

func (s *JournalTestSuite) TestRecordAndReadOrders() {
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	for i, id := range []string{"order-1", "order-2", "order-3"} {
		order := types.Order{
			ID:             id,
			ClientOrderID:  "client-" + id,
			Symbol:         "AAPL",
			Qty:            40,
			FilledQty:      0,
			FilledAvgPrice: optional.None[float64](),
			Side:           types.OrderSideBuy,
			Type:           types.OrderTypeMarket,
			TimeInForce:    types.TimeInForceDay,
			LimitPrice:     optional.None[float64](),
			StopPrice:      optional.Some(95.0),
			Status:         types.OrderStatusAccepted,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			FilledAt:       optional.None[time.Time](),
		}
		s.Require().NoError(s.journal.RecordOrder(order, "ma_crossover_5_20"))
	}

	records, err := s.journal.Orders(2)
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	// Newest first.
	s.Equal("order-3", records[0].OrderID)
	s.Equal("order-2", records[1].OrderID)
	s.Equal("ma_crossover_5_20", records[0].StrategyName)
	s.Equal(int64(40), records[0].Qty)
	s.InDelta(95.0, records[0].StopPrice, 1e-9)
}

func (s *JournalTestSuite) TestOrdersEmptyJournal() {
	records, err := s.journal.Orders(10)
	s.Require().NoError(err)
	s.Empty(records)
}
