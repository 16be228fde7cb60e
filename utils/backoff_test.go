package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/utils"
)

func TestDelayMs(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(120_000), utils.DelayMs(0, 120))
	for n := 1; n <= 10; n++ {
		require.Equal(t, 2*utils.DelayMs(n-1, 120), utils.DelayMs(n, 120))
	}
	require.Equal(t, int64(8_000), utils.DelayMs(3, 1))
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	require.Equal(t, 30*time.Second, utils.BackoffDelay(0, 30*time.Second))
	require.Equal(t, 4*time.Minute, utils.BackoffDelay(3, 30*time.Second))
	require.Equal(t, 30*time.Second, utils.BackoffDelay(-1, 30*time.Second))
}
