package match

import (
	"sort"
	"strings"

	"github.com/John-Robertt/avmeta/internal/domain"
)

// DefaultThreshold：综合得分严格大于它才算自动匹配。
const DefaultThreshold = 0.8

// YearBonus = max(0, 1 - 0.5*|query-candidate|)。任一年份缺失时 ok=false。
func YearBonus(query, candidate *int) (bonus float64, ok bool) {
	if query == nil || candidate == nil {
		return 0, false
	}
	d := *query - *candidate
	if d < 0 {
		d = -d
	}
	bonus = 1 - 0.5*float64(d)
	if bonus < 0 {
		bonus = 0
	}
	return bonus, true
}

// Score = Similarity(lower(name), lower(candidate.Name)) + YearBonus。范围 [0,2]。
func Score(c domain.SearchResult, name string, year *int) float64 {
	s := Similarity(strings.ToLower(name), strings.ToLower(c.Name))
	if b, ok := YearBonus(year, c.Year); ok {
		s += b
	}
	return s
}

// Rank 计算每个候选的 Relevance 并按得分降序返回新切片；同分保持原顺序。
func Rank(candidates []domain.SearchResult, name string, year *int) []domain.SearchResult {
	out := make([]domain.SearchResult, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Relevance = Score(out[i], name, year)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	return out
}

// Best 返回排序后的第一名，且仅当其得分严格大于 threshold 时 ok=true。
func Best(ranked []domain.SearchResult, threshold float64) (domain.SearchResult, bool) {
	if len(ranked) == 0 {
		return domain.SearchResult{}, false
	}
	top := ranked[0]
	if top.Relevance > threshold {
		return top, true
	}
	return top, false
}
