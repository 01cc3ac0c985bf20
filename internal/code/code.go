// Package code 识别自由文本中的影片番號（如 "cawd_895 1080p" → "CAWD-895"）。
package code

import (
	"regexp"
	"sort"
	"strings"
)

// 字母段 + 分隔符 + 数字段。分隔符至少出现一次，"SAMPLE123" 这类噪音不算番號。
var candidateRE = regexp.MustCompile(`(?i)\b([a-z]{2,6})[\s._-]+([0-9]{2,5})\b`)

const (
	KindNoMatch   = "no_match"
	KindAmbiguous = "ambiguous"
)

type UnmatchedError struct {
	Kind string
	// Candidates 仅在 ambiguous 时返回（已排序）。
	Candidates []string
}

func (e *UnmatchedError) Error() string {
	switch e.Kind {
	case KindNoMatch:
		return "文本中没有番號"
	case KindAmbiguous:
		return "解析到多个不同番號（ambiguous）：" + strings.Join(e.Candidates, ", ")
	default:
		return "unmatched"
	}
}

// Normalize 从 s 中提取唯一番號并规范为 "PREFIX-NUM"（大写、短横线分隔）。
// 一个都没有或有多个不同番號时返回 *UnmatchedError。
func Normalize(s string) (string, error) {
	seen := map[string]struct{}{}
	for _, m := range candidateRE.FindAllStringSubmatch(strings.TrimSpace(s), -1) {
		seen[strings.ToUpper(m[1])+"-"+m[2]] = struct{}{}
	}

	switch len(seen) {
	case 0:
		return "", &UnmatchedError{Kind: KindNoMatch}
	case 1:
		for c := range seen {
			return c, nil
		}
	}
	cands := make([]string, 0, len(seen))
	for c := range seen {
		cands = append(cands, c)
	}
	sort.Strings(cands)
	return "", &UnmatchedError{Kind: KindAmbiguous, Candidates: cands}
}
