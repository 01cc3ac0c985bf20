package extract

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Text 返回第一个匹配元素的文本（空白已折叠）。
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return NormSpace(sel.First().Text())
}

// Attr 返回第一个匹配元素的属性值（已 trim）；不存在时为空串。
func Attr(sel *goquery.Selection, name string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}

// StripPrefix 只去掉一次前缀，并 trim 结果。
func StripPrefix(prefix, value string) string {
	if prefix != "" && strings.HasPrefix(value, prefix) {
		value = value[len(prefix):]
	}
	return strings.TrimSpace(value)
}

// Part 按 sep 切分 path 并返回第 idx 段；越界返回空串。
//
//	Part("/star/abc", "/", 2) == "abc"
func Part(path, sep string, idx int) string {
	parts := strings.Split(path, sep)
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

// ToInt 解析整数；失败返回 nil。
func ToInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// FirstInt 提取第一段连续数字（例如 “155分鐘” -> 155）。没有数字时返回 0。
func FirstInt(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, _ := strconv.Atoi(b.String())
	return n
}

// ParseDate 按 layout 解析日期（UTC）；失败返回 nil。
func ParseDate(value, layout string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	return &t
}

// YearOf 返回日期的年份；t 为 nil 时返回 nil。
func YearOf(t *time.Time) *int {
	if t == nil {
		return nil
	}
	y := t.Year()
	return &y
}

// FindContaining 返回 sel 中第一个文本包含 text 的元素；找不到时返回空 Selection。
func FindContaining(sel *goquery.Selection, text string) *goquery.Selection {
	found := sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		t := Text(s)
		return t != "" && strings.Contains(t, text)
	})
	return found.First()
}

// ResolveURL 把页面内的相对链接解析为绝对 URL。
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// NormHeader 折叠空白并去掉结尾的半角/全角冒号。
func NormHeader(s string) string {
	s = NormSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// NormList 去空、去重，保持首次出现的顺序。
func NormList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
