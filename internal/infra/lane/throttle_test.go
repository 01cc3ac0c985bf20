package lane

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_ReserveSpacing(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	th := NewThrottle(5 * time.Second)
	th.now = func() time.Time { return now }
	th.next = base.Add(-5 * time.Second)

	assert.Equal(t, time.Duration(0), th.reserve(), "首次调用应立即放行")
	assert.Equal(t, 5*time.Second, th.reserve())
	assert.Equal(t, 10*time.Second, th.reserve())

	// 空闲足够久之后 next 被重置为 now，不会积累突发额度。
	now = base.Add(time.Minute)
	assert.Equal(t, time.Duration(0), th.reserve())
	assert.Equal(t, 5*time.Second, th.reserve())
}

func TestThrottle_ConsecutiveCallsTakeAtLeastNMinusOneIntervals(t *testing.T) {
	const interval = 30 * time.Millisecond
	const n = 4
	th := NewThrottle(interval)

	started := time.Now()
	for i := 0; i < n; i++ {
		_, err := th.Next(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(started), (n-1)*interval)
}

func TestThrottle_ZeroIntervalNeverWaits(t *testing.T) {
	th := NewThrottle(0)
	for i := 0; i < 100; i++ {
		d, err := th.Next(context.Background())
		require.NoError(t, err)
		require.Zero(t, d)
	}
}

func TestThrottle_CancelDuringWait(t *testing.T) {
	th := NewThrottle(time.Hour)
	_, err := th.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d, err := th.Next(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err=%v", err)
	assert.Greater(t, d, time.Duration(0))
}

func TestThrottle_NegativeIntervalClamped(t *testing.T) {
	assert.Equal(t, time.Duration(0), NewThrottle(-time.Second).Interval())
}
