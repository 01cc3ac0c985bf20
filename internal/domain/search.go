package domain

import "time"

// SearchResult 是搜索结果页中的一条候选。
// Relevance 由排序阶段计算，不参与序列化。
type SearchResult struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Year         *int       `json:"year,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Overview     string     `json:"overview,omitempty"`
	PremiereDate *time.Time `json:"premiere_date,omitempty"`
	URL          string     `json:"url,omitempty"`

	Relevance float64 `json:"-"`
}

// ImageType 对应宿主的图片槽位；目前只提供 primary。
type ImageType string

const ImageTypePrimary ImageType = "primary"

// RemoteImage 是可供宿主下载的远端图片。
type RemoteImage struct {
	URL  string    `json:"url"`
	Type ImageType `json:"type"`
}

// IntPtr 便于构造可选年份。
func IntPtr(v int) *int { return &v }
