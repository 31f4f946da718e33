package trader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/pkg/errors"
)

func TestNewSizer_RejectsBadFraction(t *testing.T) {
	_, err := NewSizer(0, logger.NewNop())
	assert.Error(t, err)

	_, err = NewSizer(1.5, logger.NewNop())
	assert.Error(t, err)

	_, err = NewSizer(-0.02, logger.NewNop())
	assert.Error(t, err)
}

func TestQuantity_RiskBudgetSizing(t *testing.T) {
	sizer, err := NewSizer(0.02, logger.NewNop())
	require.NoError(t, err)

	// 10000 * 0.02 = 200 risk budget; |100 - 95| = 5 per share; floor = 40.
	qty, err := sizer.Quantity(decimal.NewFromInt(10000), 100, 95)
	require.NoError(t, err)
	assert.Equal(t, int64(40), qty)
}

func TestQuantity_FloorsFractionalShares(t *testing.T) {
	sizer, err := NewSizer(0.02, logger.NewNop())
	require.NoError(t, err)

	// 200 / 3 = 66.67 floors to 66.
	qty, err := sizer.Quantity(decimal.NewFromInt(10000), 100, 97)
	require.NoError(t, err)
	assert.Equal(t, int64(66), qty)
}

func TestQuantity_EntryEqualsStopRejected(t *testing.T) {
	sizer, err := NewSizer(0.02, logger.NewNop())
	require.NoError(t, err)

	_, err = sizer.Quantity(decimal.NewFromInt(10000), 100, 100)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidQuantity))
}

func TestQuantity_ZeroShareBudgetRejected(t *testing.T) {
	sizer, err := NewSizer(0.01, logger.NewNop())
	require.NoError(t, err)

	// 1 * 0.01 = 0.01 budget, 5 per share: floors to zero, rejected.
	_, err = sizer.Quantity(decimal.NewFromInt(1), 100, 95)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidQuantity))
}

func TestQuantity_StopAboveEntryUsesAbsoluteDistance(t *testing.T) {
	sizer, err := NewSizer(0.02, logger.NewNop())
	require.NoError(t, err)

	qty, err := sizer.Quantity(decimal.NewFromInt(10000), 95, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(40), qty)
}
