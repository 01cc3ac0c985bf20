package lane

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/John-Robertt/avmeta/internal/infra/metrics"
)

// Class 是出站请求的类别；每个类别对应一条 Lane。
type Class string

const (
	ClassSearch Class = "search"
	ClassDetail Class = "detail"
)

const (
	// DefaultSearchInterval：搜索接口最容易触发反爬，间隔 5 秒。
	DefaultSearchInterval = 5 * time.Second
	// DefaultDetailInterval：详情/图片只串行、不限速。
	DefaultDetailInterval = 0
)

type Intervals struct {
	Search time.Duration
	Detail time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{Search: DefaultSearchInterval, Detail: DefaultDetailInterval}
}

// Set 是按 Class 索引的一组 Lane，由 Resolver 持有（没有进程级单例）。
type Set struct {
	mu      sync.RWMutex
	byClass map[Class]*Lane
}

func NewSet(iv Intervals, log hclog.Logger, m *metrics.Metrics) *Set {
	return &Set{byClass: map[Class]*Lane{
		ClassSearch: New(string(ClassSearch), iv.Search, log, m),
		ClassDetail: New(string(ClassDetail), iv.Detail, log, m),
	}}
}

// Add 注册（或替换）一个额外类别的 Lane。可与 Get 并发调用。
func (s *Set) Add(c Class, l *Lane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClass[c] = l
}

// Get 返回类别对应的 Lane；未知类别落到 detail。
func (s *Set) Get(c Class) *Lane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.byClass[c]; ok {
		return l
	}
	return s.byClass[ClassDetail]
}

func (s *Set) Search() *Lane { return s.Get(ClassSearch) }

func (s *Set) Detail() *Lane { return s.Get(ClassDetail) }
