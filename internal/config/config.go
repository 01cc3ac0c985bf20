package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultSource         = "javbus"
	DefaultTimeout        = 20 * time.Second
	DefaultSearchInterval = 5 * time.Second
	DefaultTTL            = 7 * 24 * time.Hour
	DefaultThreshold      = 0.8
	DefaultConcurrency    = 4
	DefaultLogLevel       = "info"

	// EnvPrefix：环境变量形如 AVMETA_CACHE_DIR。
	EnvPrefix = "AVMETA"
	fileName  = "avmeta"
)

// Config 是合并（默认值 < 配置文件 < 环境变量 < CLI flag）后的最终配置。
type Config struct {
	CacheDir  string `mapstructure:"cache_dir" validate:"required"`
	Source    string `mapstructure:"source" validate:"required,oneof=javbus javdb"`
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,http_url"`
	UserAgent string `mapstructure:"user_agent"`
	ProxyURL  string `mapstructure:"proxy_url" validate:"omitempty,url"`

	Timeout        time.Duration `mapstructure:"timeout"`
	SearchInterval time.Duration `mapstructure:"search_interval" validate:"gte=0"`
	DetailInterval time.Duration `mapstructure:"detail_interval" validate:"gte=0"`
	TTL            time.Duration `mapstructure:"ttl" validate:"gt=0"`

	MatchThreshold float64 `mapstructure:"match_threshold" validate:"gt=0,lt=2"`
	Concurrency    int     `mapstructure:"concurrency"`

	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// SetDefaults 注册所有键的默认值。AutomaticEnv 只对已知键生效，因此每个键都必须在这里出现。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("source", DefaultSource)
	v.SetDefault("base_url", "")
	v.SetDefault("user_agent", "")
	v.SetDefault("proxy_url", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("search_interval", DefaultSearchInterval)
	v.SetDefault("detail_interval", time.Duration(0))
	v.SetDefault("ttl", DefaultTTL)
	v.SetDefault("match_threshold", DefaultThreshold)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics_addr", "")
}

// Load 读取配置。
//
// 发现规则：
// 1) cfgFile 非空：必须存在
// 2) 否则依次查找 ./avmeta.yaml 与 ~/.config/avmeta/avmeta.yaml（均可选）
//
// 返回值 used 为实际读取的配置文件路径（未读取时为空）。
func Load(v *viper.Viper, cfgFile string) (cfg Config, used string, err error) {
	SetDefaults(v)

	if cfgFile = strings.TrimSpace(cfgFile); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			if os.IsNotExist(err) {
				return Config{}, "", &Error{Code: ErrCodeNotFound, Path: cfgFile, Err: err}
			}
			return Config{}, "", &Error{Code: ErrCodeInvalid, Path: cfgFile, Err: err}
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, "", &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
		}
	}
	used = v.ConfigFileUsed()

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, used, &Error{Code: ErrCodeInvalid, Path: used, Err: err}
	}
	cfg, err = normalize(cfg)
	if err != nil {
		return Config{}, used, &Error{Code: ErrCodeInvalid, Path: used, Err: err}
	}
	return cfg, used, nil
}

// normalize 先做规范化（去空白、小写、去结尾斜杠），再按 validate 标签校验。
func normalize(c Config) (Config, error) {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.CacheDir = strings.TrimSpace(c.CacheDir)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.ProxyURL = strings.TrimSpace(c.ProxyURL)
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.MetricsAddr = strings.TrimSpace(c.MetricsAddr)

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return Config{}, fmt.Errorf("%s 不满足 %s 约束（实际值 %v）", fe.Field(), fe.Tag(), fe.Value())
		}
		return Config{}, err
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return Config{}, fmt.Errorf("log_level 无效：%q", c.LogLevel)
	}

	if abs, err := filepath.Abs(c.CacheDir); err == nil {
		c.CacheDir = abs
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	// 范围 [1, 32]；超出截断。
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Concurrency > 32 {
		c.Concurrency = 32
	}
	return c, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, fileName)
	}
	return ".avmeta-cache"
}
