package utils

import (
	"context"
	"math/big"
	"testing"
	"time"

	"sahara/internal/config"
	"sahara/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomIntInRangeSwapsBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := RandomIntInRange(10, 3)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 10)
	}
}

func TestRandomFloatInRangeRounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := RandomFloatInRange(0.001, 0.002, 4)
		assert.GreaterOrEqual(t, v, 0.001)
		assert.LessOrEqual(t, v, 0.002)
		assert.InDelta(t, v, float64(int64(v*10000+0.5))/10000, 1e-12)
	}
}

func TestRandomDuration(t *testing.T) {
	d, err := RandomDuration(config.DelayRange{Min: 2, Max: 2, Unit: types.TimeUnitSeconds})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	d, err = RandomDuration(config.DelayRange{})
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = RandomDuration(config.DelayRange{Min: 1, Max: 2, Unit: "hours"})
	assert.Error(t, err)
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWeiConversions(t *testing.T) {
	wei, err := FloatToWei(0.1)
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", wei.String())
	assert.Equal(t, "0.1", FromWei(wei))
	assert.Equal(t, "0", FromWei(big.NewInt(0)))
	assert.Equal(t, "-0.5", FromWei(big.NewInt(-500000000000000000)))
	assert.Equal(t, "0", FromWei(nil))

	wei, err = FloatToWei(1.23456789)
	require.NoError(t, err)
	assert.Equal(t, "1234567890000000000", wei.String())

	_, err = FloatToWei(-1)
	assert.Error(t, err)
}

func TestMulPercent(t *testing.T) {
	assert.Equal(t, big.NewInt(110), MulPercent(big.NewInt(100), 110))
	assert.Nil(t, MulPercent(nil, 110))
}
