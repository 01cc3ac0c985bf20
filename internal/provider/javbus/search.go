package javbus

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
)

type movieSearchExtractor struct{}

// ExtractSearchResults 解析影片搜索页。
//
// Name 使用識別碼：本站的查询几乎都是按番号进行，标题放在 Overview。
func (movieSearchExtractor) ExtractSearchResults(doc *goquery.Document, pageURL string) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	doc.Find("#waterfall div.item a.movie-box").Each(func(_ int, a *goquery.Selection) {
		href := extract.ResolveURL(pageURL, extract.Attr(a, "href"))
		dates := a.Find("div.photo-info date")
		code := extract.Text(dates.Eq(0))
		if code == "" {
			code = lastSegment(href)
		}
		if code == "" {
			return
		}
		released := extract.ParseDate(extract.Text(dates.Eq(1)), "2006-01-02")
		img := a.Find("div.photo-frame img")
		out = append(out, domain.SearchResult{
			ID:           lastSegment(href),
			Name:         code,
			Year:         extract.YearOf(released),
			ImageURL:     extract.ResolveURL(pageURL, extract.Attr(img, "src")),
			Overview:     extract.Attr(img, "title"),
			PremiereDate: released,
			URL:          href,
		})
	})
	return out, nil
}

type personSearchExtractor struct{}

func (personSearchExtractor) ExtractSearchResults(doc *goquery.Document, pageURL string) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	doc.Find("#waterfall div.item a.avatar-box").Each(func(_ int, a *goquery.Selection) {
		href := extract.ResolveURL(pageURL, extract.Attr(a, "href"))
		id := lastSegment(href)
		name := extract.Text(a.Find("div.photo-info span"))
		img := a.Find("div.photo-frame img")
		if name == "" {
			name = extract.Attr(img, "title")
		}
		if id == "" || name == "" {
			return
		}
		out = append(out, domain.SearchResult{
			ID:       id,
			Name:     name,
			ImageURL: extract.ResolveURL(pageURL, extract.Attr(img, "src")),
			URL:      href,
		})
	})
	return out, nil
}
