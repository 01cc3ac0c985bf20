package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avmeta/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "搜索影片或演员，按相似度排序输出候选",
	Long: `search 请求站点搜索页并按与查询的相似度降序输出候选（JSON 数组）。

搜索失败只记 WARN 日志并输出空数组；relevance 字段为排序得分。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("year", 0, "影片年份（匹配时加分）")
	searchCmd.Flags().Bool("person", false, "搜索演员而不是影片")
	rootCmd.AddCommand(searchCmd)
}

// scoredResult 把不参与序列化的 Relevance 显式输出。
type scoredResult struct {
	domain.SearchResult
	Relevance float64 `json:"relevance"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	person, _ := cmd.Flags().GetBool("person")

	var (
		res []domain.SearchResult
		err error
	)
	if person {
		res, err = app.resolver.SearchPeople(cmd.Context(), name)
	} else {
		res, err = app.resolver.SearchMovies(cmd.Context(), name, yearFlag(cmd))
	}
	if err != nil {
		return err
	}

	out := make([]scoredResult, 0, len(res))
	for _, r := range res {
		out = append(out, scoredResult{SearchResult: r, Relevance: r.Relevance})
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func yearFlag(cmd *cobra.Command) *int {
	y, _ := cmd.Flags().GetInt("year")
	if y <= 0 {
		return nil
	}
	return domain.IntPtr(y)
}
