// Package match scores remote search hits against a free-text query.
package match

// Similarity 返回 a、b 的模糊相似度，范围 [0,1]。
//
// 算法：找最长公共子串（首个出现的最长者），再对其左右两侧递归累加公共长度，
// 结果 = 2*公共长度/(len(a)+len(b))。按 rune 计算。
//
// 两个空串视为完全相同（1.0）；只有一个为空时为 0。
// 为保证对称性，先把两个参数按字典序排好再计算。
func Similarity(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	common := commonLength(ra, rb)
	return 2 * float64(common) / float64(len(ra)+len(rb))
}

func commonLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	pos1, pos2, longest := 0, 0, 0
	for p := 0; p < len(a); p++ {
		for q := 0; q < len(b); q++ {
			l := 0
			for p+l < len(a) && q+l < len(b) && a[p+l] == b[q+l] {
				l++
			}
			// 严格大于：相同长度保留最早出现的 (p,q)。
			if l > longest {
				longest, pos1, pos2 = l, p, q
			}
		}
	}
	if longest == 0 {
		return 0
	}

	sum := longest
	if pos1 > 0 && pos2 > 0 {
		sum += commonLength(a[:pos1], b[:pos2])
	}
	if pos1+longest < len(a) && pos2+longest < len(b) {
		sum += commonLength(a[pos1+longest:], b[pos2+longest:])
	}
	return sum
}
