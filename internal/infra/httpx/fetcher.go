package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/John-Robertt/avmeta/internal/infra/lane"
	"github.com/John-Robertt/avmeta/internal/infra/metrics"
)

// Passthrough 在一次成功的 2xx 响应之后被调用，可用于识别站点的验证/拦截页面。
// 默认恒等。返回 error 时 Passthrough 自己负责关闭 resp.Body。
type Passthrough func(ctx context.Context, resp *http.Response) (*http.Response, error)

// Fetcher 是所有出站 GET 的唯一入口：每个请求都必须先经过某条 Lane 放行。
//
// 约束：
// - 单次请求，不做自动重试
// - Permit 在 client.Do 返回（拿到响应头）后立即释放，不覆盖 body 读取与解析
// - 非 2xx 一律按失败返回，body 已关闭
type Fetcher struct {
	Client      *http.Client
	UserAgent   string
	Prepare     func(req *http.Request)
	Passthrough Passthrough

	Log     hclog.Logger
	Metrics *metrics.Metrics
}

func (f *Fetcher) logger() hclog.Logger {
	if f.Log == nil {
		return hclog.NewNullLogger()
	}
	return f.Log
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

// Fetch 在 l 上排队、发出一次 GET，并返回 2xx 响应（调用方负责关闭 Body）。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, l *lane.Lane) (*http.Response, error) {
	if l == nil {
		return nil, errors.New("httpx: nil lane")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Lane: l.Name(), Kind: KindNetwork, Err: err}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	if f.Prepare != nil {
		f.Prepare(req)
	}

	permit, err := l.Admit(ctx)
	if err != nil {
		f.Metrics.ObserveFetch(l.Name(), string(KindCancelled), 0)
		return nil, &FetchError{URL: rawURL, Lane: l.Name(), Kind: KindCancelled, Err: err}
	}

	f.logger().Info("fetching", "url", rawURL, "lane", l.Name())
	started := time.Now()
	resp, err := f.client().Do(req)
	permit.Release()
	took := time.Since(started)

	if err != nil {
		fe := &FetchError{URL: rawURL, Lane: l.Name(), Kind: KindNetwork, Err: err}
		if cerr := ctx.Err(); cerr != nil {
			fe.Kind = KindCancelled
			fe.Err = cerr
		}
		f.Metrics.ObserveFetch(l.Name(), string(fe.Kind), took)
		return nil, fe
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		f.Metrics.ObserveFetch(l.Name(), string(KindStatus), took)
		return nil, &FetchError{
			URL:        rawURL,
			Lane:       l.Name(),
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}
	}

	if f.Passthrough != nil {
		out, err := f.Passthrough(ctx, resp)
		if err != nil {
			f.Metrics.ObserveFetch(l.Name(), string(KindNetwork), took)
			var fe *FetchError
			if errors.As(err, &fe) {
				return nil, err
			}
			return nil, &FetchError{URL: rawURL, Lane: l.Name(), Kind: KindNetwork, Err: err}
		}
		resp = out
	}

	f.Metrics.ObserveFetch(l.Name(), "ok", took)
	return resp, nil
}

// FetchBytes 是 Fetch + 读取 + 关闭。读取 body 发生在 Permit 释放之后。
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string, l *lane.Lane) ([]byte, error) {
	resp, err := f.Fetch(ctx, rawURL, l)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		fe := &FetchError{URL: rawURL, Lane: l.Name(), Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
		if cerr := ctx.Err(); cerr != nil {
			fe.Kind = KindCancelled
			fe.Err = cerr
		}
		return nil, fe
	}
	return b, nil
}
