// Package main 是 avmeta 的调试 CLI：搜索、解析、输出 NFO 与清理缓存。
//
// 约束：
// - stdout 只输出一个 JSON 文档（或 NFO 文件路径清单），日志一律走 stderr
// - 每次进程只构造一个 Resolver；lane 计时不跨进程
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/John-Robertt/avmeta/internal/app/resolve"
	"github.com/John-Robertt/avmeta/internal/config"
	"github.com/John-Robertt/avmeta/internal/infra/cache"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
	"github.com/John-Robertt/avmeta/internal/infra/lane"
	"github.com/John-Robertt/avmeta/internal/infra/metrics"
	"github.com/John-Robertt/avmeta/internal/provider"
	"github.com/John-Robertt/avmeta/internal/provider/javbus"
	"github.com/John-Robertt/avmeta/internal/provider/javdb"
)

// version is set at build time via ldflags.
var version = "dev"

// errReported 表示结果已经写到 stdout，只需要非零退出码。
var errReported = errors.New("部分条目失败")

// flagKeys：CLI flag 名 → 配置键。flag 只在显式传入时覆盖配置文件与环境变量。
var flagKeys = map[string]string{
	"source":          "source",
	"cache-dir":       "cache_dir",
	"base-url":        "base_url",
	"proxy":           "proxy_url",
	"timeout":         "timeout",
	"search-interval": "search_interval",
	"detail-interval": "detail_interval",
	"ttl":             "ttl",
	"threshold":       "match_threshold",
	"concurrency":     "concurrency",
	"log-level":       "log_level",
	"metrics-addr":    "metrics_addr",
}

// env 是一次命令执行的运行时依赖，由 PersistentPreRunE 填充。
type env struct {
	cfg      config.Config
	log      hclog.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	store    *cache.Store
	resolver *resolve.Resolver
	server   *http.Server
}

var app env

var rootCmd = &cobra.Command{
	Use:   "avmeta",
	Short: "JAV 元数据解析调试工具",
	Long: `avmeta 通过 javbus/javdb 等站点搜索影片与人物，解析详情页并缓存结果。

所有出站请求按类别（search/detail）排队并限速；同一 id 的详情在 TTL 内只抓取一次。`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return app.close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "配置文件（默认 ./avmeta.yaml 或 ~/.config/avmeta/avmeta.yaml）")
	pf.String("source", config.DefaultSource, "站点：javbus|javdb")
	pf.String("cache-dir", "", "缓存根目录")
	pf.String("base-url", "", "覆盖站点根地址（镜像域名）")
	pf.String("proxy", "", "HTTP 代理地址")
	pf.Duration("timeout", config.DefaultTimeout, "单次请求超时")
	pf.Duration("search-interval", lane.DefaultSearchInterval, "搜索请求最小间隔")
	pf.Duration("detail-interval", lane.DefaultDetailInterval, "详情/图片请求最小间隔")
	pf.Duration("ttl", config.DefaultTTL, "缓存有效期")
	pf.Float64("threshold", config.DefaultThreshold, "自动匹配阈值（得分必须严格大于它）")
	pf.Int("concurrency", config.DefaultConcurrency, "批量解析的并发数")
	pf.String("log-level", config.DefaultLogLevel, "日志级别：trace|debug|info|warn|error")
	pf.String("metrics-addr", "", "Prometheus 指标监听地址（如 :9090），为空则不启用")
}

func main() {
	// .env 中的 AVMETA_* 与真实环境变量等价；文件不存在时忽略。
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		}
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("绑定 --%s 失败：%w", name, err)
		}
	}
	return nil
}

func (e *env) setup(cmd *cobra.Command) error {
	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, used, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if used != "" {
		e.log.Debug("config loaded", "path", used)
	}

	e.registry = prometheus.NewRegistry()
	e.registry.MustRegister(collectors.NewGoCollector())
	e.metrics = metrics.New(e.registry)
	if cfg.MetricsAddr != "" {
		e.serveMetrics(cfg.MetricsAddr)
	}

	e.store = cache.New(cfg.CacheDir,
		cache.WithTTL(cfg.TTL),
		cache.WithLogger(e.log),
		cache.WithMetrics(e.metrics),
	)

	// sweep 只需要 store。
	if cmd.Name() == sweepCmd.Name() {
		return nil
	}
	r, err := newResolver(cfg, e.store, e.log, e.metrics)
	if err != nil {
		return err
	}
	e.resolver = r
	return nil
}

func (e *env) close() error {
	if e.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return e.server.Shutdown(ctx)
}

func (e *env) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	e.log.Info("metrics server listening", "addr", addr)
}

func newLogger(level string, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "avmeta",
		Level:  hclog.LevelFromString(level),
		Output: w,
	})
}

// newRegistry 注册内置站点；BaseURL 只作用于当前选中的站点。
func newRegistry(cfg config.Config) (provider.Registry, error) {
	bus := javbus.Source{}
	db := javdb.Source{}
	switch cfg.Source {
	case bus.Name():
		bus.BaseURL = cfg.BaseURL
	case db.Name():
		db.BaseURL = cfg.BaseURL
	}
	return provider.NewRegistry(bus, db)
}

func newResolver(cfg config.Config, store *cache.Store, log hclog.Logger, m *metrics.Metrics) (*resolve.Resolver, error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	src, ok := reg.Get(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("未知 source：%q（可选：%s）", cfg.Source, strings.Join(reg.Names(), ", "))
	}

	client, err := httpx.NewClient(httpx.ClientOptions{
		ProxyURL:  cfg.ProxyURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Err: err}
	}
	fetcher := &httpx.Fetcher{Client: client, UserAgent: cfg.UserAgent, Log: log, Metrics: m}

	return resolve.New(src, store, fetcher, resolve.Options{
		Threshold: cfg.MatchThreshold,
		Intervals: &lane.Intervals{Search: cfg.SearchInterval, Detail: cfg.DetailInterval},
		Log:       log,
		Metrics:   m,
	})
}

// writeJSON 把 v 作为唯一的 JSON 文档写到 w。
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
