package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/John-Robertt/avmeta/internal/infra/fsx"
)

// Sweep 删除 item.json 比 maxAge 更旧的记录目录（以及空目录），返回删除数量。
//
// 只在调用方显式要求时执行；GetOrRefresh 从不淘汰条目。
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	removed := 0
	now := s.Now()
	for _, kind := range []Kind{KindMovie, KindPerson} {
		base := filepath.Join(s.Root, string(kind))
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, &IOError{Op: "list", Path: base, Err: err}
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(base, e.Name())
			age, ok, err := fsx.Age(filepath.Join(dir, jsonName), now)
			if err != nil {
				s.Log.Warn("sweep: stat failed, skipping", "dir", dir, "error", err)
				continue
			}
			if !ok {
				// 只有 item.html：可能是正在进行的 refresh，按 html 的 mtime 判断。
				age, ok, err = fsx.Age(filepath.Join(dir, htmlName), now)
				if err != nil {
					s.Log.Warn("sweep: stat failed, skipping", "dir", dir, "error", err)
					continue
				}
			}
			if ok && age <= maxAge {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				return removed, &IOError{Op: "remove", Path: dir, Err: err}
			}
			removed++
			s.Log.Debug("sweep: removed", "kind", kind, "id", e.Name(), "age", age)
		}
	}
	s.Log.Info("sweep done", "removed", removed, "max_age", maxAge)
	return removed, nil
}
