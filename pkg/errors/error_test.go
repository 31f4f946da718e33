package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndNewf(t *testing.T) {
	err := New(ErrCodeNoData, "no data available")
	assert.Equal(t, "[200] no data available", err.Error())

	err = Newf(ErrCodeMissingColumn, "missing column %q", "close")
	assert.Contains(t, err.Error(), `missing column "close"`)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeBrokerCallFailed, "account refresh failed", cause)

	assert.Contains(t, err.Error(), "account refresh failed")
	assert.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, cause)
}

func TestGetCodeAndHasCode(t *testing.T) {
	err := New(ErrCodeRetriesExhausted, "gave up")
	assert.Equal(t, ErrCodeRetriesExhausted, GetCode(err))
	assert.True(t, HasCode(err, ErrCodeRetriesExhausted))
	assert.False(t, HasCode(err, ErrCodeNoData))

	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := New(ErrCodeFetchFailed, "bars fetch failed")
	outer := Wrapf(ErrCodeRetriesExhausted, inner, "get_bars failed after %d attempts", 3)

	// The outermost code wins.
	assert.Equal(t, ErrCodeRetriesExhausted, GetCode(outer))
	require.ErrorIs(t, outer, outer)

	var structured *Error
	require.True(t, As(outer, &structured))
}

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataErrorf(21, 5, "AAPL", "AAPL: %d bars, need %d", 5, 21)

	assert.True(t, IsInsufficientDataError(err))
	assert.Equal(t, 21, err.Required)
	assert.Equal(t, 5, err.Actual)
	assert.Contains(t, err.Error(), "AAPL")

	assert.False(t, IsInsufficientDataError(stderrors.New("plain")))
}
