// Package javdb 提供 JavDB 站点的 URL 规则与页面抽取器。
package javdb

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
)

const defaultBaseURL = "https://javdb.com"

// Source 实现 JavDB：影片搜索 + 影片详情。演员页不支持（People 返回 nil）。
//
// 约束：
// - 影片 id 是详情页 /v/<id> 的最后一段，不是番号；必须先搜索才能拿到
type Source struct {
	// BaseURL 允许指定 JavDB 的可用域名（例如 javdb565.com），用于绕过区域不可达。
	BaseURL string
}

func (Source) Name() string { return "javdb" }

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (s Source) SearchURL(query string) string {
	return s.baseURL() + "/search?q=" + url.QueryEscape(strings.TrimSpace(query)) + "&f=all"
}

func (s Source) PersonSearchURL(query string) string {
	return s.baseURL() + "/search?q=" + url.QueryEscape(strings.TrimSpace(query)) + "&f=actor"
}

func (s Source) MovieURL(id string) string {
	return s.baseURL() + "/v/" + url.PathEscape(strings.TrimSpace(id))
}

func (s Source) PersonURL(id string) string {
	return s.baseURL() + "/actors/" + url.PathEscape(strings.TrimSpace(id))
}

func (Source) Movies() extract.MovieExtractor              { return movieExtractor{} }
func (Source) People() extract.PersonExtractor             { return nil }
func (Source) MovieSearch() extract.SearchResultExtractor  { return searchExtractor{} }
func (Source) PersonSearch() extract.SearchResultExtractor { return nil }

type movieExtractor struct{}

func (movieExtractor) ExtractMovie(doc *goquery.Document, pageURL string) (domain.MovieRecord, error) {
	// 标题优先使用原标题（origin-title），不存在时回退 current-title。
	// goquery 不执行 CSS，即使 origin-title 是 display:none 也能读到。
	title := extract.Text(doc.Find("h2.title span.origin-title"))
	if title == "" {
		title = extract.Text(doc.Find("h2.title strong.current-title"))
	}

	var (
		code     string
		release  string
		studio   string
		series   string
		director *domain.Credit
		cast     []domain.Credit
		tags     []string
	)

	doc.Find("nav.movie-panel-info .panel-block").Each(func(_ int, s *goquery.Selection) {
		value := s.Find("span.value")
		switch extract.NormHeader(s.Find("strong").First().Text()) {
		case "番號", "番号", "ID":
			code = strings.ReplaceAll(extract.Text(value), " ", "")
		case "日期", "Date", "Released Date":
			release = extract.Text(value)
		case "片商", "Maker", "Studio", "Manufacturer":
			studio = extract.Text(value.Find("a"))
		case "系列", "Series":
			series = extract.Text(value.Find("a"))
		case "導演", "导演", "Director":
			a := value.Find("a").First()
			if name := extract.Text(a); name != "" {
				director = &domain.Credit{Name: name, ID: extract.Part(extract.Attr(a, "href"), "/", 2)}
			}
		case "演員", "演员", "Actor", "Actors", "Cast":
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				if name := extract.Text(a); name != "" {
					cast = append(cast, domain.Credit{Name: name, ID: extract.Part(extract.Attr(a, "href"), "/", 2)})
				}
			})
		case "類別", "类别", "Tags", "Genre", "Genres":
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				tags = append(tags, extract.Text(a))
			})
		}
	})

	if title == "" && code == "" {
		return domain.MovieRecord{}, extract.Malformed(pageURL, "未找到标题与番號（疑似非详情页）")
	}
	if code != "" {
		title = extract.StripPrefix(code, title)
	}

	image := extract.Attr(doc.Find(".column-video-cover a[data-fancybox='gallery']"), "href")
	if image == "" {
		image = extract.Attr(doc.Find(".column-video-cover img.video-cover"), "src")
	}

	date := extract.ParseDate(release, "2006-01-02")
	return domain.MovieRecord{
		Title:           title,
		Genres:          extract.NormList(tags),
		Director:        director,
		Cast:            cast,
		Studio:          studio,
		Set:             series,
		ReleaseDate:     date,
		ProductionYear:  extract.YearOf(date),
		UPC:             code,
		PrimaryImageURL: extract.ResolveURL(pageURL, image),
	}, nil
}

type searchExtractor struct{}

// ExtractSearchResults 解析搜索页。Name 使用番號（video-title 里的 strong），标题放在 Overview。
func (searchExtractor) ExtractSearchResults(doc *goquery.Document, pageURL string) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	doc.Find("div.movie-list div.item a.box").Each(func(_ int, a *goquery.Selection) {
		href := extract.Attr(a, "href")
		id := extract.Part(href, "/", 2)
		code := extract.Text(a.Find("div.video-title strong"))
		if id == "" || code == "" {
			return
		}
		title := extract.Attr(a, "title")
		if title == "" {
			title = extract.StripPrefix(code, extract.Text(a.Find("div.video-title")))
		}
		released := extract.ParseDate(extract.Text(a.Find("div.meta")), "2006-01-02")
		out = append(out, domain.SearchResult{
			ID:           id,
			Name:         code,
			Year:         extract.YearOf(released),
			ImageURL:     extract.ResolveURL(pageURL, extract.Attr(a.Find("div.cover img"), "src")),
			Overview:     title,
			PremiereDate: released,
			URL:          extract.ResolveURL(pageURL, href),
		})
	})
	return out, nil
}
