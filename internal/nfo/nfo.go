// Package nfo 把影片记录渲染成 Kodi/Jellyfin/Emby 可读取的 NFO。
package nfo

import (
	"encoding/xml"
	"strings"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
)

const (
	DefaultCountry = "JP"
	DefaultMPAA    = "R18+"
)

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title     string `xml:"title"`
	SortTitle string `xml:"sorttitle,omitempty"`
	Num       string `xml:"num,omitempty"`
	Plot      string `xml:"plot,omitempty"`

	Studio string `xml:"studio,omitempty"`
	Set    string `xml:"set,omitempty"`

	Premiered string `xml:"premiered,omitempty"`
	Year      int    `xml:"year,omitempty"`

	MPAA    string `xml:"mpaa,omitempty"`
	Country string `xml:"country,omitempty"`

	Thumb    string `xml:"thumb,omitempty"`
	Director string `xml:"director,omitempty"`

	UniqueIDs []uniqueID `xml:"uniqueid,omitempty"`
	Actors    []actor    `xml:"actor,omitempty"`
	Genres    []string   `xml:"genre,omitempty"`
	Website   string     `xml:"website,omitempty"`
}

type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type actor struct {
	Name  string `xml:"name"`
	Order int    `xml:"order"`
}

// Encode 把 MovieRecord 转成 NFO（XML）。
//
// 约束：
// - HasMetadata=false 的记录只输出 title（回退到 id）与 uniqueid
// - 列表去空、去重、保持输入顺序
// - sourceKey 为站点在 uniqueid 中的 type（如 "javbus"）；为空则只输出 UPC
func Encode(rec domain.MovieRecord, sourceKey, website string) ([]byte, error) {
	code := strings.TrimSpace(rec.UPC)
	if code == "" {
		code = strings.TrimSpace(rec.ID)
	}
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = code
	}

	m := movie{
		Title:     title,
		SortTitle: code,
		Num:       code,
	}
	m.UniqueIDs = uniqueIDs(rec, sourceKey)

	if rec.HasMetadata {
		m.Plot = strings.TrimSpace(rec.Synopsis)
		m.Studio = strings.TrimSpace(rec.Studio)
		m.Set = strings.TrimSpace(rec.Set)
		if rec.ReleaseDate != nil {
			m.Premiered = rec.ReleaseDate.Format("2006-01-02")
		}
		if rec.ProductionYear != nil {
			m.Year = *rec.ProductionYear
		}
		m.MPAA = DefaultMPAA
		m.Country = DefaultCountry
		m.Thumb = strings.TrimSpace(rec.PrimaryImageURL)
		if rec.Director != nil {
			m.Director = strings.TrimSpace(rec.Director.Name)
		}
		m.Genres = extract.NormList(rec.Genres)

		names := make([]string, 0, len(rec.Cast))
		for _, c := range rec.Cast {
			names = append(names, c.Name)
		}
		for i, n := range extract.NormList(names) {
			m.Actors = append(m.Actors, actor{Name: n, Order: i})
		}
		m.Website = strings.TrimSpace(website)
	}

	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

// uniqueIDs 按固定顺序输出：站点 id 在前（default），UPC 在后。
func uniqueIDs(rec domain.MovieRecord, sourceKey string) []uniqueID {
	ids := rec.ProviderIDs(sourceKey)
	out := make([]uniqueID, 0, len(ids))
	if v, ok := ids[sourceKey]; ok && sourceKey != "" {
		out = append(out, uniqueID{Type: sourceKey, Default: true, Value: v})
	}
	if v, ok := ids[domain.UPCKey]; ok {
		out = append(out, uniqueID{Type: domain.UPCKey, Value: v})
	}
	return out
}
