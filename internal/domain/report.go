package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusResolved   = "resolved"
	StatusNoMetadata = "no_metadata"
	StatusUnresolved = "unresolved"
	StatusFailed     = "failed"
)

const (
	ErrCodeFetchFailed = "fetch_failed"
	ErrCodeParseFailed = "parse_failed"
	ErrCodeCacheIO     = "cache_io_failed"
	ErrCodeCancelled   = "cancelled"
	ErrCodeInvalidID   = "invalid_id"
)

// BatchReport 是批量解析（CLI movie/person 多 id）的稳定输出结构。
type BatchReport struct {
	// RunID 同时出现在 stderr 日志里，用于把报告与日志对应起来。
	RunID  string `json:"run_id,omitempty"`
	Source string `json:"source"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary BatchSummary `json:"summary"`
	Items   []ItemResult `json:"items"`
}

type BatchSummary struct {
	Resolved   int `json:"resolved"`
	NoMetadata int `json:"no_metadata"`
	Unresolved int `json:"unresolved"`
	Failed     int `json:"failed"`
}

type ItemResult struct {
	ID    string `json:"id"`
	Query string `json:"query,omitempty"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Record any `json:"record,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 id 字典序；id=="" 的条目（未解析的查询）排在最后
// 3) summary 由 items 计算得出
func (r *BatchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].ID
		b := r.Items[j].ID
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})

	var s BatchSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusResolved:
			s.Resolved++
		case StatusNoMetadata:
			s.NoMetadata++
		case StatusUnresolved:
			s.Unresolved++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r BatchReport) MarshalJSON() ([]byte, error) {
	type Alias BatchReport
	return json.Marshal(Alias(r))
}
