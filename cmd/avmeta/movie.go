package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/infra/fsx"
	"github.com/John-Robertt/avmeta/internal/nfo"
)

var movieCmd = &cobra.Command{
	Use:   "movie <id>...",
	Short: "按站点 id 解析影片详情（带缓存）",
	Long: `movie 对每个 id 读取缓存或抓取详情页，输出一个 BatchReport JSON。

指定 --nfo <dir> 时，同时为每个解析成功的影片写出 <dir>/<id>.nfo。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMovie,
}

func init() {
	movieCmd.Flags().String("nfo", "", "把 NFO 写到该目录")
	rootCmd.AddCommand(movieCmd)
}

func runMovie(cmd *cobra.Command, args []string) error {
	nfoDir, _ := cmd.Flags().GetString("nfo")
	r := app.resolver
	src := r.Source()

	rep := runBatch(cmd.Context(), src.Name(), args, app.cfg.Concurrency, func(ctx context.Context, id string) domain.ItemResult {
		rec, err := r.Movie(ctx, id)
		if err != nil {
			return failedItem(id, err)
		}
		it := domain.ItemResult{ID: id, Status: statusOf(rec.HasMetadata), Record: rec}
		if nfoDir == "" {
			return it
		}
		b, err := nfo.Encode(rec, src.Name(), src.MovieURL(rec.ID))
		if err == nil {
			err = fsx.WriteFileAtomic(nfoDir, nfoName(id), b)
		}
		if err != nil {
			app.log.Warn("write nfo failed", "id", id, "error", err)
			it.Status = domain.StatusFailed
			it.ErrorCode = domain.ErrCodeCacheIO
			it.ErrorMsg = fmt.Sprintf("写 NFO 失败：%v", err)
		}
		return it
	})

	if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	return exitErr(rep)
}

func nfoName(id string) string {
	return id + ".nfo"
}
