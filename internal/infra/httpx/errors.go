package httpx

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind 区分抓取失败的类别。
type Kind string

const (
	KindNetwork   Kind = "network"   // 传输层失败（DNS/TLS/连接/读超时等）
	KindStatus    Kind = "status"    // 站点返回非 2xx
	KindCancelled Kind = "cancelled" // 调用方 ctx 取消或超时
)

// FetchError 是 Fetcher 返回的唯一错误类型；上层用 errors.As 取出细节。
type FetchError struct {
	URL        string
	Lane       string
	Kind       Kind
	StatusCode int
	Location   string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "fetch error"
	}
	switch e.Kind {
	case KindStatus:
		loc := strings.TrimSpace(e.Location)
		if loc == "" {
			return fmt.Sprintf("fetch %s (lane=%s): HTTP %d", e.URL, e.Lane, e.StatusCode)
		}
		return fmt.Sprintf("fetch %s (lane=%s): HTTP %d location=%s", e.URL, e.Lane, e.StatusCode, loc)
	default:
		return fmt.Sprintf("fetch %s (lane=%s) %s: %v", e.URL, e.Lane, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// BlockedError 表示请求被站点引导到了“验证/拦截”页面。
// 产品约束：不尝试绕过，直接视为抓取失败。
type BlockedError struct {
	URL    string
	Reason string // 例如 "driver-verify"
}

func (e *BlockedError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// IsCancelled 判断 err 是否源自调用方取消（而不是站点/网络问题）。
func IsCancelled(err error) bool {
	// FetchError 已经区分过：client 超时也满足 DeadlineExceeded，但属于网络失败。
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindCancelled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StatusCode 取出 HTTP 状态码；非状态类错误返回 0。
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == KindStatus {
		return fe.StatusCode
	}
	return 0
}
