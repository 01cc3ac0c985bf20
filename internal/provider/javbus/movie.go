package javbus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
)

type movieExtractor struct{}

// ExtractMovie 解析影片详情页。
func (movieExtractor) ExtractMovie(doc *goquery.Document, pageURL string) (domain.MovieRecord, error) {
	// 先校验“是不是详情页”：識別碼必须存在（避免把验证页/拦截页当成成功解析）。
	code := infoValue(doc, "識別碼", "识别码", "ID")
	if code == "" {
		return domain.MovieRecord{}, extract.Malformed(pageURL, "未找到識別碼（疑似返回了验证页/非详情页内容）")
	}

	title := extract.StripPrefix(code, extract.Text(doc.Find("h3")))

	studio := infoValue(doc, "製作商", "制作商", "Studio", "Maker")
	if studio == "" {
		studio = infoValue(doc, "發行商", "发行商", "Label", "Publisher")
	}
	series := infoValue(doc, "系列", "Series")

	var director *domain.Credit
	if p := infoRow(doc, "導演", "导演", "Director"); p != nil {
		a := p.Find("a").First()
		if name := extract.Text(a); name != "" {
			director = &domain.Credit{Name: name, ID: lastSegment(extract.Attr(a, "href"))}
		}
	}

	var cast []domain.Credit
	seen := map[string]struct{}{}
	doc.Find("div.star-name a").Each(func(_ int, a *goquery.Selection) {
		name := extract.Text(a)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		cast = append(cast, domain.Credit{Name: name, ID: lastSegment(extract.Attr(a, "href"))})
	})

	genres := keywordTags(doc, code, studio, series)
	if len(genres) == 0 {
		// 兜底：keywords 缺失时回退从 /genre/ 链接提取（可能包含噪音标签）。
		doc.Find("span.genre a").Each(func(_ int, a *goquery.Selection) {
			if strings.Contains(extract.Attr(a, "href"), "/genre/") {
				genres = append(genres, extract.Text(a))
			}
		})
	}
	genres = extract.NormList(genres)

	release := extract.ParseDate(infoValue(doc, "發行日期", "发行日期", "Release Date", "発売日"), "2006-01-02")

	image := extract.ResolveURL(pageURL, extract.Attr(doc.Find("a.bigImage"), "href"))
	if image == "" {
		image = extract.ResolveURL(pageURL, extract.Attr(doc.Find("a.bigImage img"), "src"))
	}

	return domain.MovieRecord{
		Title:           title,
		Synopsis:        extract.Attr(doc.Find("meta[name='description']"), "content"),
		Genres:          genres,
		Director:        director,
		Cast:            cast,
		Studio:          studio,
		Set:             series,
		ReleaseDate:     release,
		ProductionYear:  extract.YearOf(release),
		UPC:             code,
		PrimaryImageURL: image,
	}, nil
}

// infoRow 返回 div.info 中 header 命中 headers 之一的 <p>。
func infoRow(doc *goquery.Document, headers ...string) *goquery.Selection {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[extract.NormHeader(h)] = struct{}{}
	}
	var out *goquery.Selection
	doc.Find("div.info p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		h := extract.NormHeader(p.Find("span.header").First().Text())
		if _, ok := set[h]; !ok {
			return true
		}
		out = p
		return false
	})
	return out
}

// infoValue 优先取 <a> 文本；否则取移除 header 后的剩余文本。
func infoValue(doc *goquery.Document, headers ...string) string {
	p := infoRow(doc, headers...)
	if p == nil {
		return ""
	}
	if a := extract.Text(p.Find("a")); a != "" {
		return a
	}
	if v := extract.Text(p.Find("span:not(.header)")); v != "" {
		return v
	}
	raw := extract.NormSpace(p.Find("span.header").First().Text())
	return strings.TrimSpace(strings.TrimPrefix(extract.Text(p), raw))
}

// keywordTags 解析 <meta name="keywords">，形如 CODE,Studio,Series,Tag1,Tag2,...
// 只剔除已知的 code/studio/series，剩下的视为标签。
func keywordTags(doc *goquery.Document, code, studio, series string) []string {
	content := extract.Attr(doc.Find("meta[name='keywords']"), "content")
	if content == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(content, ",") {
		s := strings.TrimSpace(p)
		if s == "" || strings.EqualFold(s, code) || s == studio || s == series {
			continue
		}
		out = append(out, s)
	}
	return out
}

func lastSegment(href string) string {
	href = strings.TrimRight(strings.TrimSpace(href), "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
