package lane

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/John-Robertt/avmeta/internal/infra/metrics"
)

// Lane 把“单槽互斥门 + Throttle”组合成一条出站请求通道。
//
// 约束：
// - 同一 Lane 任意时刻最多一个请求在途
// - throttle 的等待在持有门的情况下进行，因此速率 <= 1/interval
// - 门的获取按到达顺序排队（semaphore.Weighted 是 FIFO），且可被 ctx 取消
// - 任何退出路径（取消/错误）都必须释放门
type Lane struct {
	name     string
	gate     *semaphore.Weighted
	throttle *Throttle

	log     hclog.Logger
	metrics *metrics.Metrics
}

func New(name string, interval time.Duration, log hclog.Logger, m *metrics.Metrics) *Lane {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Lane{
		name:     name,
		gate:     semaphore.NewWeighted(1),
		throttle: NewThrottle(interval),
		log:      log.Named("lane").With("lane", name),
		metrics:  m,
	}
}

func (l *Lane) Name() string { return l.name }

func (l *Lane) Interval() time.Duration { return l.throttle.Interval() }

// Permit 是一次放行凭证。Release 幂等，可以放心 defer。
type Permit struct {
	once sync.Once
	lane *Lane
}

func (p *Permit) Release() {
	if p == nil || p.lane == nil {
		return
	}
	p.once.Do(func() { p.lane.gate.Release(1) })
}

// Admit 依次获取门、等待 throttle，然后返回 Permit。
// 失败时返回的 Permit 为 nil，门已经释放（或从未获得）。
func (l *Lane) Admit(ctx context.Context) (*Permit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	delay, err := l.throttle.Next(ctx)
	if err != nil {
		l.gate.Release(1)
		return nil, err
	}
	if delay > 0 {
		l.log.Debug("throttled", "delay", delay)
	}
	l.metrics.ObserveLaneWait(l.name, time.Since(started))
	return &Permit{lane: l}, nil
}

// Do 在持有 Permit 期间执行 fn。
func (l *Lane) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p, err := l.Admit(ctx)
	if err != nil {
		return err
	}
	defer p.Release()
	return fn(ctx)
}
