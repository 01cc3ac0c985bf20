package main

import (
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "删除超过指定时长的缓存条目",
	Long: `sweep 显式清理缓存：item.json 的 mtime 早于 --older-than 的条目目录会被删除。

缓存不会自动清理；过期条目在下次访问时重新抓取。`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().Duration("older-than", 0, "删除早于该时长的条目（默认使用 ttl）")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("older-than")
	if maxAge <= 0 {
		maxAge = app.cfg.TTL
	}
	n, err := app.store.Sweep(cmd.Context(), maxAge)
	if err != nil {
		return err
	}
	app.log.Info("sweep finished", "removed", n, "older_than", maxAge)
	return writeJSON(cmd.OutOrStdout(), map[string]any{
		"removed":    n,
		"older_than": maxAge.String(),
	})
}
