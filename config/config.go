package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "DSDAV"
)

type LogConfig struct {
	File      string `mapstructure:"file"`
	Level     string `mapstructure:"level"`
	FileCount int    `mapstructure:"file_count"`
	FileSize  int    `mapstructure:"file_size"`
	KeepDays  int    `mapstructure:"keep_days"`
	Console   bool   `mapstructure:"console"`
}

type WebdavConfig struct {
	Root        string `mapstructure:"root" validate:"required,startswith=/"`
	Realm       string `mapstructure:"realm" validate:"required"`
	MaxBodySize int64  `mapstructure:"max_body_size" validate:"gte=0"`
}

type StoreConfig struct {
	Kind   string                 `mapstructure:"kind" validate:"required"`
	Config map[string]interface{} `mapstructure:"config"`
}

type CacheConfig struct {
	Enable           bool          `mapstructure:"enable"`
	ListTTL          time.Duration `mapstructure:"list_ttl" validate:"gte=0"`
	ListSize         int           `mapstructure:"list_size" validate:"gte=0"`
	StatSize         int           `mapstructure:"stat_size" validate:"gte=0"`
	BodyCacheSize    int64         `mapstructure:"body_cache_size" validate:"gte=0"`
	BodyKeySizeLimit int64         `mapstructure:"body_key_size_limit" validate:"gte=0"`
}

// DatasetToken 数据集名称格式为 owner/dataset
type DatasetToken struct {
	Name  string `mapstructure:"name" validate:"required,contains=/"`
	Token string `mapstructure:"token" validate:"required"`
}

type Config struct {
	Bind     string         `mapstructure:"bind" validate:"required"`
	LogInfo  LogConfig      `mapstructure:"log_info"`
	Webdav   WebdavConfig   `mapstructure:"webdav"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Datasets []DatasetToken `mapstructure:"datasets" validate:"dive"`
}

// TokenTable returns the configured tokens keyed by "owner/dataset".
func (c *Config) TokenTable() map[string]string {
	rs := make(map[string]string, len(c.Datasets))
	for _, item := range c.Datasets {
		rs[item.Name] = item.Token
	}
	return rs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind", ":8080")
	v.SetDefault("log_info.level", "info")
	v.SetDefault("log_info.console", true)
	v.SetDefault("log_info.file_count", 5)
	v.SetDefault("log_info.file_size", 100)
	v.SetDefault("log_info.keep_days", 7)
	v.SetDefault("webdav.root", "/")
	v.SetDefault("webdav.realm", "dsdav")
	v.SetDefault("webdav.max_body_size", 0)
	v.SetDefault("store.kind", "mem")
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.list_ttl", "30s")
	v.SetDefault("cache.list_size", 4096)
	v.SetDefault("cache.stat_size", 16384)
	v.SetDefault("cache.body_cache_size", 64*1024*1024)
	v.SetDefault("cache.body_key_size_limit", 1024*1024)
}

func setupViper(v *viper.Viper, f string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if len(f) > 0 {
		v.SetConfigFile(f)
		return
	}
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dsdav")
}

// Parse loads config from f (or config.{json,yaml} in the default
// locations when f is empty) with DSDAV_* env overrides applied.
func Parse(f string) (*Config, error) {
	v := viper.New()
	setupViper(v, f)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if len(f) > 0 || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config failed, err:%w", err)
		}
	}
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config failed, err:%w", err)
	}
	ApplyDefaults(c)
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("validate config failed, err:%w", err)
	}
	return c, nil
}

func ApplyDefaults(c *Config) {
	if !strings.HasPrefix(c.Webdav.Root, "/") {
		c.Webdav.Root = "/" + c.Webdav.Root
	}
	if c.Store.Config == nil {
		c.Store.Config = map[string]interface{}{}
	}
}
