package domain

import (
	"strings"
	"time"
)

// UPCKey 是 UPC 条码在 provider id 集合中的键名。
const UPCKey = "UpcCode"

// Credit 描述一次署名（演员或导演）。ID 是远端站点的人物 id，可能为空。
type Credit struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// MovieRecord 是影片详情页提取出的结构化记录，也是 item.json 的落盘形态。
//
// 约束：
// - HasMetadata=false 表示“已解析但没有数据”，不同于“尚未解析”（文件不存在）
// - 字段缺失允许为空，但 JSON 结构必须稳定（缓存跨版本可读）
type MovieRecord struct {
	ID          string `json:"id"`
	HasMetadata bool   `json:"has_metadata"`

	Title    string   `json:"title,omitempty"`
	Synopsis string   `json:"synopsis,omitempty"`
	Genres   []string `json:"genres,omitempty"`

	Director *Credit  `json:"director,omitempty"`
	Cast     []Credit `json:"cast,omitempty"`

	Studio         string     `json:"studio,omitempty"`
	Set            string     `json:"set,omitempty"`
	ReleaseDate    *time.Time `json:"release_date,omitempty"`
	ProductionYear *int       `json:"production_year,omitempty"`
	UPC            string     `json:"upc,omitempty"`

	PrimaryImageURL string `json:"primary_image_url,omitempty"`
}

// ProviderIDs 返回记录携带的外部 id 集合（站点 id + UPC）。
func (m MovieRecord) ProviderIDs(sourceKey string) map[string]string {
	out := make(map[string]string, 2)
	if m.ID != "" && sourceKey != "" {
		out[sourceKey] = m.ID
	}
	if upc := strings.TrimSpace(m.UPC); upc != "" {
		out[UPCKey] = upc
	}
	return out
}

// PersonRecord 是人物页提取出的结构化记录。
type PersonRecord struct {
	ID          string `json:"id"`
	HasMetadata bool   `json:"has_metadata"`

	Name         string     `json:"name,omitempty"`
	Height       string     `json:"height,omitempty"`
	Weight       string     `json:"weight,omitempty"`
	Measurements string     `json:"measurements,omitempty"`
	Nationality  string     `json:"nationality,omitempty"`
	Ethnicity    string     `json:"ethnicity,omitempty"`
	StarSign     string     `json:"star_sign,omitempty"`
	Birthplace   string     `json:"birthplace,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	Twitter      string     `json:"twitter,omitempty"`

	PrimaryImageURL string `json:"primary_image_url,omitempty"`
}

// Overview 把身材/国籍等零散字段拼成一段简介（空字段跳过，以 <br/> 分隔）。
func (p PersonRecord) Overview() string {
	parts := make([]string, 0, 6)
	for _, v := range []string{p.Height, p.Weight, p.Measurements, p.Nationality, p.Ethnicity, p.StarSign} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "<br/>")
}
