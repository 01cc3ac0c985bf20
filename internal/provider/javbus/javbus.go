// Package javbus 提供 JavBus 站点的 URL 规则与页面抽取器。
package javbus

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
)

const defaultBaseURL = "https://www.javbus.com"

// Source 实现 JavBus：影片搜索、影片详情、演员搜索、演员页。
//
// 约束：
// - 影片 id 即識別碼（例如 SSIS-001），演员 id 是 /star/<id> 的最后一段
// - 不尝试绕过验证页：遇到 driver-verify 直接失败
type Source struct {
	// BaseURL 允许指定可用镜像域名。为空时使用 https://www.javbus.com。
	BaseURL string
}

func (Source) Name() string { return "javbus" }

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (s Source) SearchURL(query string) string {
	return s.baseURL() + "/search/" + url.PathEscape(strings.TrimSpace(query))
}

func (s Source) PersonSearchURL(query string) string {
	return s.baseURL() + "/searchstar/" + url.PathEscape(strings.TrimSpace(query))
}

func (s Source) MovieURL(id string) string {
	return s.baseURL() + "/" + url.PathEscape(strings.TrimSpace(id))
}

func (s Source) PersonURL(id string) string {
	return s.baseURL() + "/star/" + url.PathEscape(strings.TrimSpace(id))
}

func (Source) Movies() extract.MovieExtractor              { return movieExtractor{} }
func (Source) People() extract.PersonExtractor             { return personExtractor{} }
func (Source) MovieSearch() extract.SearchResultExtractor  { return movieSearchExtractor{} }
func (Source) PersonSearch() extract.SearchResultExtractor { return personSearchExtractor{} }

// PrepareRequest 带上“已成年确认 + 显示全部影片”的 cookie，避免被引导到验证页。
func (Source) PrepareRequest(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: "age", Value: "verified"})
	req.AddCookie(&http.Cookie{Name: "existmag", Value: "all"})
}

// Passthrough 识别 driver-verify 验证页。
func (Source) Passthrough(_ context.Context, resp *http.Response) (*http.Response, error) {
	if resp.Request != nil && resp.Request.URL != nil &&
		strings.Contains(resp.Request.URL.Path, "/doc/driver-verify") {
		_ = resp.Body.Close()
		return nil, &httpx.BlockedError{URL: resp.Request.URL.String(), Reason: "driver-verify"}
	}

	// body 本身是验证页时同样视为拦截；为此需要先读出来，再放回一个新的 Body。
	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if bytes.Contains(b, []byte(`id="ageVerify"`)) {
		u := ""
		if resp.Request != nil && resp.Request.URL != nil {
			u = resp.Request.URL.String()
		}
		return nil, &httpx.BlockedError{URL: u, Reason: "driver-verify"}
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	return resp, nil
}
