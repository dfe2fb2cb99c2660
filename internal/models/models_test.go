package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceOverridesScan(t *testing.T) {
	var p PriceOverrides
	require.NoError(t, p.Scan([]byte(`{"ram-3": 9500, "ssd-4": 0}`)))
	assert.Equal(t, PriceOverrides{"ram-3": 9500, "ssd-4": 0}, p)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	require.NoError(t, p.Scan(`{"ssd-1": -500}`))
	assert.Equal(t, int64(-500), p["ssd-1"])

	assert.Error(t, p.Scan(42))
	assert.Error(t, p.Scan([]byte(`not json`)))
}

func TestPriceOverridesValue(t *testing.T) {
	v, err := PriceOverrides(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	v, err = PriceOverrides{"ram-3": 9500}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ram-3": 9500}`, v.(string))
}
