package lane

import (
	"context"
	"sync"
	"time"
)

// Throttle 保证同一逻辑通道上相邻两次放行之间至少间隔 interval。
//
// 约束：
// - 不是令牌桶：没有突发额度，N 次连续调用至少耗时 (N-1)*interval
// - next 只前进不回退；调用方取消等待时该时间槽视为已消费
// - 对 next 的读改写在锁内完成，等待在锁外进行
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time

	now func() time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	if interval < 0 {
		interval = 0
	}
	t := &Throttle{interval: interval, now: time.Now}
	t.next = t.now().Add(-interval)
	return t
}

func (t *Throttle) Interval() time.Duration { return t.interval }

// Next 领取下一个放行时刻，必要时挂起直到该时刻；返回实际需要等待的时长。
func (t *Throttle) Next(ctx context.Context) (time.Duration, error) {
	delay := t.reserve()
	if delay <= 0 {
		return 0, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return delay, ctx.Err()
	case <-timer.C:
		return delay, nil
	}
}

func (t *Throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.next = t.next.Add(t.interval)
	if t.next.After(now) {
		return t.next.Sub(now)
	}
	t.next = now
	return 0
}
