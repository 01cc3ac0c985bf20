// Package extract 定义页面抽取能力接口，以及各站点实现共用的 goquery 工具函数。
//
// 核心流程只依赖这里的三个接口；站点差异全部收敛在实现里。
package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
)

// MovieExtractor 从影片详情页抽取字段。
//
// 约束：
// - 必须是纯函数：相同 doc + pageURL => 相同输出
// - 不负责 ID / HasMetadata，这两项由调用方填写
type MovieExtractor interface {
	ExtractMovie(doc *goquery.Document, pageURL string) (domain.MovieRecord, error)
}

// PersonExtractor 从演员页抽取字段。
// HasProfile 区分“有效资料页”与错误页/不存在页；为 false 时不会调用 ExtractPerson。
type PersonExtractor interface {
	HasProfile(doc *goquery.Document) bool
	ExtractPerson(doc *goquery.Document, pageURL string) (domain.PersonRecord, error)
}

// SearchResultExtractor 按页面出现顺序返回搜索结果；排序由 match 包负责。
type SearchResultExtractor interface {
	ExtractSearchResults(doc *goquery.Document, pageURL string) ([]domain.SearchResult, error)
}

// ParseError 表示页面无法解析，或结构与预期不符。
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse 把原始 HTML 转为可查询的文档。
func Parse(r io.Reader, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}
	return doc, nil
}

func ParseBytes(b []byte, pageURL string) (*goquery.Document, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, &ParseError{URL: pageURL, Err: fmt.Errorf("empty document")}
	}
	return Parse(bytes.NewReader(b), pageURL)
}

// Malformed 构造“结构不符”的 ParseError，供站点实现使用。
func Malformed(pageURL, format string, args ...any) error {
	return &ParseError{URL: pageURL, Err: fmt.Errorf(format, args...)}
}
