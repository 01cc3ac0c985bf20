package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/avmeta/internal/app/resolve"
	"github.com/John-Robertt/avmeta/internal/domain"
)

// itemFunc 解析单个 id。错误通过 ItemResult 表达，不中断其它条目。
type itemFunc func(ctx context.Context, id string) domain.ItemResult

// runBatch 以最多 limit 个并发解析 ids，并返回已 Finalize 的报告。
// 出站节奏由 Resolver 的 lane 控制，limit 只约束同时等待的 goroutine 数量。
func runBatch(ctx context.Context, source string, ids []string, limit int, fn itemFunc) domain.BatchReport {
	rep := domain.BatchReport{RunID: uuid.NewString(), Source: source, StartedAt: time.Now()}
	if app.log != nil {
		app.log.Info("batch started", "run_id", rep.RunID, "source", source, "count", len(ids))
		defer func() {
			app.log.Info("batch finished", "run_id", rep.RunID, "resolved", rep.Summary.Resolved, "failed", rep.Summary.Failed)
		}()
	}
	items := make([]domain.ItemResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = fn(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	rep.Items = items
	rep.FinishedAt = time.Now()
	rep.Finalize()
	return rep
}

func failedItem(id string, err error) domain.ItemResult {
	return domain.ItemResult{
		ID:        id,
		Status:    domain.StatusFailed,
		ErrorCode: resolve.ErrorCode(err),
		ErrorMsg:  err.Error(),
	}
}

func statusOf(hasMetadata bool) string {
	if hasMetadata {
		return domain.StatusResolved
	}
	return domain.StatusNoMetadata
}

// exitErr：有失败条目时返回 errReported（报告已经输出）。
func exitErr(rep domain.BatchReport) error {
	if rep.Summary.Failed > 0 {
		return errReported
	}
	return nil
}
