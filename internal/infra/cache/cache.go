package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/avmeta/internal/infra/fsx"
	"github.com/John-Robertt/avmeta/internal/infra/metrics"
)

// DefaultTTL 是记录文件的默认有效期（按 item.json 的修改时间计算）。
const DefaultTTL = 7 * 24 * time.Hour

const (
	htmlName = "item.html"
	jsonName = "item.json"
)

// Kind 是记录类别，同时也是 <root> 下的子目录名，避免 movie/person id 互相覆盖。
type Kind string

const (
	KindMovie  Kind = "movies"
	KindPerson Kind = "people"
)

// FailurePolicy 决定 refresh 失败时的处理方式。
type FailurePolicy int

const (
	// FailPropagate：refresh 失败直接返回给调用方，不写缓存。
	FailPropagate FailurePolicy = iota
	// FailNegative：refresh 失败转换为“无元数据”记录并写入缓存，
	// TTL 内不再请求源站。取消不受此策略影响。
	FailNegative
)

var ErrInvalidID = errors.New("cache: invalid id")

// IOError 表示读写缓存文件失败（不是“未命中”）。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store 是 <root>/<kind>/<id>/ 下的文件缓存。
//
// 约束：
// - 新鲜度只看 item.json 的 mtime，不读记录里的时间字段
// - 写入一律走临时文件 + rename，读者不会看到半截 JSON
// - 同一 id 的并发 refresh 合并为一次
// - 不同 id 之间没有任何锁
type Store struct {
	Root    string
	TTL     time.Duration
	Now     func() time.Time
	Log     hclog.Logger
	Metrics *metrics.Metrics

	group singleflight.Group
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.TTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.Now = now
		}
	}
}

func WithLogger(log hclog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.Log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.Metrics = m }
}

func New(root string, opts ...Option) *Store {
	s := &Store{
		Root: filepath.Clean(strings.TrimSpace(root)),
		TTL:  DefaultTTL,
		Now:  time.Now,
		Log:  hclog.NewNullLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.Log = s.Log.Named("cache")
	return s
}

// Dir 返回某条记录的目录。id 不合法时返回 ErrInvalidID。
func (s *Store) Dir(kind Kind, id string) (string, error) {
	clean, err := cleanID(id)
	if err != nil {
		return "", err
	}
	if kind != KindMovie && kind != KindPerson {
		return "", fmt.Errorf("cache: unknown kind %q", kind)
	}
	return filepath.Join(s.Root, string(kind), clean), nil
}

// JSONPath 返回 item.json 的路径（测试与 sweep 用它修改/检查 mtime）。
func (s *Store) JSONPath(kind Kind, id string) (string, error) {
	dir, err := s.Dir(kind, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, jsonName), nil
}

// WriteRaw 保存原始页面（item.html），便于排查与离线重抽取。不影响新鲜度。
func (s *Store) WriteRaw(kind Kind, id string, raw []byte) error {
	dir, err := s.Dir(kind, id)
	if err != nil {
		return err
	}
	if err := fsx.WriteFileAtomic(dir, htmlName, raw); err != nil {
		return &IOError{Op: "write", Path: filepath.Join(dir, htmlName), Err: err}
	}
	return nil
}

// ReadRaw 读取 item.html；不存在时 ok=false。
func (s *Store) ReadRaw(kind Kind, id string) ([]byte, bool, error) {
	dir, err := s.Dir(kind, id)
	if err != nil {
		return nil, false, err
	}
	path := filepath.Join(dir, htmlName)
	b, ok, err := fsx.ReadFileIfExists(path)
	if err != nil {
		return nil, false, &IOError{Op: "read", Path: path, Err: err}
	}
	return b, ok, nil
}

// GetOrRefresh 返回 (kind,id) 的缓存记录；未命中或过期时调用 refresh 并持久化结果。
//
// negative 仅在 policy=FailNegative 时使用，生成“无元数据”记录。
func GetOrRefresh[T any](
	ctx context.Context,
	s *Store,
	kind Kind,
	id string,
	policy FailurePolicy,
	refresh func(ctx context.Context) (T, error),
	negative func() T,
) (T, error) {
	var zero T

	dir, err := s.Dir(kind, id)
	if err != nil {
		return zero, err
	}
	path := filepath.Join(dir, jsonName)

	if v, ok := lookup[T](s, kind, id, path, false); ok {
		return v, nil
	}

	key := string(kind) + "/" + id
	for {
		ch := s.group.DoChan(key, func() (any, error) {
			// 抢到 leader 时再查一次：别的调用可能刚写完。外层已经计过 miss/stale，这里不重复计数。
			if v, ok := lookup[T](s, kind, id, path, true); ok {
				return v, nil
			}

			v, err := refresh(ctx)
			if err == nil {
				err = writeJSON(dir, path, v)
			}
			if err != nil {
				if isCancelled(ctx, err) {
					s.Metrics.IncCache(string(kind), "error")
					return nil, &leaderCancelledError{Err: err}
				}
				if policy != FailNegative || negative == nil {
					s.Metrics.IncCache(string(kind), "error")
					return nil, err
				}
				s.Log.Warn("refresh failed, caching negative record", "kind", kind, "id", id, "error", err)
				s.Metrics.IncCache(string(kind), "negative")
				v = negative()
				if werr := writeJSON(dir, path, v); werr != nil {
					return nil, werr
				}
				return v, nil
			}
			s.Log.Debug("refreshed", "kind", kind, "id", id)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case r := <-ch:
			if r.Err != nil {
				// 共享刷新只因发起者取消而中止：自己的 ctx 仍有效时重新发起（或加入新的一轮）。
				var lc *leaderCancelledError
				if errors.As(r.Err, &lc) {
					if err := ctx.Err(); err != nil {
						return zero, err
					}
					s.Log.Debug("shared refresh abandoned by its caller, retrying", "kind", kind, "id", id)
					continue
				}
				return zero, r.Err
			}
			v, ok := r.Val.(T)
			if !ok {
				return zero, fmt.Errorf("cache: unexpected value type %T", r.Val)
			}
			return v, nil
		}
	}
}

// leaderCancelledError 标记“刷新因发起它的调用方取消而中止”，其它等待者据此重试。
type leaderCancelledError struct {
	Err error
}

func (e *leaderCancelledError) Error() string { return e.Err.Error() }

func (e *leaderCancelledError) Unwrap() error { return e.Err }

// lookup 命中条件：文件存在、age <= TTL、JSON 可解析。坏文件视为未命中。
// quiet=true 时不计指标、不记 miss/stale/hit 日志（用于 leader 内的二次检查）。
func lookup[T any](s *Store, kind Kind, id, path string, quiet bool) (T, bool) {
	var zero T
	count := func(result string) {
		if !quiet {
			s.Metrics.IncCache(string(kind), result)
		}
	}
	debug := func(msg string, args ...any) {
		if !quiet {
			s.Log.Debug(msg, append([]any{"kind", kind, "id", id}, args...)...)
		}
	}

	age, ok, err := fsx.Age(path, s.Now())
	if err != nil {
		s.Log.Warn("stat failed, treating as miss", "kind", kind, "id", id, "error", err)
		count("miss")
		return zero, false
	}
	if !ok {
		debug("miss")
		count("miss")
		return zero, false
	}
	if age > s.TTL {
		debug("stale", "age", age)
		count("stale")
		return zero, false
	}

	b, _, err := fsx.ReadFileIfExists(path)
	if err != nil {
		count("miss")
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		// 坏缓存：忽略，走网络。
		s.Log.Warn("corrupt record, refreshing", "kind", kind, "id", id, "error", err)
		count("miss")
		return zero, false
	}
	debug("hit")
	count("hit")
	return v, true
}

func writeJSON(dir, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomic(dir, jsonName, b); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func isCancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	// 只认调用方的取消；http.Client 自身超时属于刷新失败。
	return errors.Is(err, context.Canceled)
}

// cleanID 只做最小约束：避免路径穿越。id 对缓存来说是不透明字符串。
func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "", id == ".", id == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}
