// Package resolve 编排“搜索 -> 排序 -> 取详情 -> 缓存”的完整流程。
package resolve

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/John-Robertt/avmeta/internal/infra/cache"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
	"github.com/John-Robertt/avmeta/internal/infra/lane"
	"github.com/John-Robertt/avmeta/internal/infra/metrics"
	"github.com/John-Robertt/avmeta/internal/match"
	"github.com/John-Robertt/avmeta/internal/provider"
)

var (
	ErrNoID = errors.New("resolve: id 不能为空")
	// ErrUnsupported 表示 source 没有提供对应的抽取器。
	ErrUnsupported = errors.New("resolve: source 不支持该能力")
)

// ResolveState 是一次“按查询解析影片”的终态。
type ResolveState int

const (
	// Done：拿到了 id 并完成 get-or-refresh（记录本身可能 HasMetadata=false）。
	Done ResolveState = iota
	// Unresolved：没有 id，且最佳候选的得分不超过阈值。
	Unresolved
)

func (s ResolveState) String() string {
	switch s {
	case Done:
		return "done"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

type Options struct {
	// Threshold：候选得分必须严格大于它才自动匹配。<=0 时使用 match.DefaultThreshold。
	Threshold float64
	// Intervals 为 nil 时使用 lane.DefaultIntervals()。
	Intervals *lane.Intervals

	Log     hclog.Logger
	Metrics *metrics.Metrics
}

// Resolver 为单个 source 提供搜索与详情解析。
//
// 约束：
// - 每个 Resolver 拥有自己的一组 lane（search/detail），不存在进程级共享的计时器
// - 所有出站请求都经过 lane；缓存命中时不发请求
// - 不做任何自动重试
type Resolver struct {
	source    provider.Source
	store     *cache.Store
	fetcher   *httpx.Fetcher
	lanes     *lane.Set
	threshold float64
	log       hclog.Logger
}

// New 构造 Resolver。fetcher 会被复制一份，并按 source 的可选能力补上 Prepare/Passthrough。
func New(src provider.Source, store *cache.Store, fetcher *httpx.Fetcher, opts Options) (*Resolver, error) {
	if src == nil {
		return nil, errors.New("resolve: source 不能为空")
	}
	if store == nil {
		return nil, errors.New("resolve: cache store 不能为空")
	}
	if fetcher == nil {
		fetcher = &httpx.Fetcher{}
	}

	log := opts.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("resolve").With("source", src.Name())

	iv := lane.DefaultIntervals()
	if opts.Intervals != nil {
		iv = *opts.Intervals
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}

	f := *fetcher
	if f.Log == nil {
		f.Log = log
	}
	if f.Metrics == nil {
		f.Metrics = opts.Metrics
	}
	if p, ok := src.(provider.RequestPreparer); ok {
		f.Prepare = p.PrepareRequest
	}
	if p, ok := src.(provider.SecurityPassthrough); ok {
		f.Passthrough = p.Passthrough
	}

	return &Resolver{
		source:    src,
		store:     store,
		fetcher:   &f,
		lanes:     lane.NewSet(iv, log, opts.Metrics),
		threshold: threshold,
		log:       log,
	}, nil
}

func (r *Resolver) Source() provider.Source { return r.source }

func (r *Resolver) Threshold() float64 { return r.threshold }

// ImageResponse 通过 detail lane 取回图片（调用方负责关闭 Body）。
func (r *Resolver) ImageResponse(ctx context.Context, imageURL string) (*http.Response, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, errors.New("resolve: image url 不能为空")
	}
	r.log.Info("retrieving image", "url", imageURL)
	return r.fetcher.Fetch(ctx, imageURL, r.lanes.Detail())
}

func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNoID
	}
	return id, nil
}
