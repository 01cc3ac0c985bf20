package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avmeta/internal/app/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "搜索并在得分超过阈值时解析最佳候选",
	Long: `resolve 先搜索，再对得分严格大于阈值的最佳候选解析详情。

没有候选超过阈值时输出 state=unresolved，且不抓取任何详情页。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Int("year", 0, "影片年份（匹配时加分）")
	resolveCmd.Flags().Bool("person", false, "解析演员而不是影片")
	resolveCmd.Flags().String("id", "", "已知站点 id（跳过搜索）")
	rootCmd.AddCommand(resolveCmd)
}

type resolveOutput struct {
	Query  string `json:"query"`
	State  string `json:"state"`
	Record any    `json:"record,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	person, _ := cmd.Flags().GetBool("person")
	id, _ := cmd.Flags().GetString("id")

	out := resolveOutput{Query: name}
	if person {
		rec, st, err := app.resolver.ResolvePerson(cmd.Context(), resolve.PersonQuery{ID: id, Name: name})
		if err != nil {
			return err
		}
		out.State = st.String()
		if st == resolve.Done {
			out.Record = rec
		}
	} else {
		rec, st, err := app.resolver.ResolveMovie(cmd.Context(), resolve.MovieQuery{ID: id, Name: name, Year: yearFlag(cmd)})
		if err != nil {
			return err
		}
		out.State = st.String()
		if st == resolve.Done {
			out.Record = rec
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
