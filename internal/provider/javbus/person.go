package javbus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
)

type personExtractor struct{}

// 演员页资料块：#waterfall 第一项的 .avatar-box。
const profileSel = "div.avatar-box div.photo-info"

func (personExtractor) HasProfile(doc *goquery.Document) bool {
	return extract.Text(doc.Find(profileSel+" span.pb10")) != ""
}

func (personExtractor) ExtractPerson(doc *goquery.Document, pageURL string) (domain.PersonRecord, error) {
	info := doc.Find(profileSel).First()
	name := extract.Text(info.Find("span.pb10"))
	if name == "" {
		return domain.PersonRecord{}, extract.Malformed(pageURL, "演员页缺少姓名")
	}

	fields := map[string]string{}
	info.Find("p").Each(func(_ int, p *goquery.Selection) {
		k, v, ok := strings.Cut(extract.Text(p), ":")
		if !ok {
			k, v, ok = strings.Cut(extract.Text(p), "：")
		}
		if !ok {
			return
		}
		fields[extract.NormHeader(k)] = strings.TrimSpace(v)
	})
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := fields[k]; v != "" {
				return v
			}
		}
		return ""
	}

	return domain.PersonRecord{
		Name:            name,
		Height:          get("身高", "Height"),
		Measurements:    measurements(get("胸圍", "胸围", "Bust"), get("腰圍", "腰围", "Waist"), get("臀圍", "臀围", "Hip")),
		Birthplace:      get("出生地", "Birthplace"),
		Birthdate:       extract.ParseDate(get("生日", "Birthday"), "2006-01-02"),
		PrimaryImageURL: extract.ResolveURL(pageURL, extract.Attr(doc.Find("div.avatar-box div.photo-frame img"), "src")),
	}, nil
}

// measurements 组合为 B83-W57-H85；三项全缺时返回空串。
func measurements(bust, waist, hip string) string {
	if bust == "" && waist == "" && hip == "" {
		return ""
	}
	n := func(s string) string {
		return strings.TrimSuffix(strings.TrimSpace(s), "cm")
	}
	return "B" + n(bust) + "-W" + n(waist) + "-H" + n(hip)
}
