package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/John-Robertt/avmeta/internal/extract"
)

// Source 描述一个远端元数据站点：URL 规则 + 各类页面的抽取器。
//
// 约束：
// - Source 不做抓取、缓存、重试、限速（由 resolve/httpx/cache/lane 统一实现）
// - 抽取器可以为 nil，表示该站点不支持对应能力
// - URL 方法负责对 query/id 做必要的转义
type Source interface {
	Name() string

	SearchURL(query string) string
	PersonSearchURL(query string) string
	MovieURL(id string) string
	PersonURL(id string) string

	Movies() extract.MovieExtractor
	People() extract.PersonExtractor
	MovieSearch() extract.SearchResultExtractor
	PersonSearch() extract.SearchResultExtractor
}

// RequestPreparer 是可选能力：在请求发出前补充站点需要的 Header/Cookie。
type RequestPreparer interface {
	PrepareRequest(req *http.Request)
}

// SecurityPassthrough 是可选能力：识别站点的验证/拦截页面。
// 返回 error 时需自行关闭 resp.Body。
type SecurityPassthrough interface {
	Passthrough(ctx context.Context, resp *http.Response) (*http.Response, error)
}

// 阶段名，用于 Error.Stage 与日志。
const (
	StageSearch = "search"
	StageFetch  = "fetch"
	StageParse  = "parse"
)

// Error 是 source 阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / parse_failed。
type Error struct {
	Source string
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
