package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Config 全局配置，进程启动时加载一次，之后只读
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`            // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`          // 数据库配置
	Log       LogConfig                 `mapstructure:"log"`               // 日志配置
	HTTP      HTTPConfig                `mapstructure:"http"`              // 出站HTTP配置
	RateLimit RateLimitConfig           `mapstructure:"rate_limit"`        // 限流与退避
	Cache     CacheConfig               `mapstructure:"cache"`             // 结果缓存
	Ingest    IngestConfig              `mapstructure:"ingest"`            // 采集调度
	Kafka     KafkaConfig               `mapstructure:"kafka"`             // 下游推送
	Sensitive map[string]float64        `mapstructure:"sensitive_sources"` // 敏感来源 → 延迟倍率
	Platforms map[string]PlatformConfig `mapstructure:"platforms"`         // 多平台独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres / sqlite
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 启动时自动建表
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text / json
	File       string `mapstructure:"file"`   // 为空只输出到stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// HTTPConfig 出站请求配置
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`          // 单次请求硬超时
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`   // 响应体读取上限
	HostRatePerSec float64       `mapstructure:"host_rate_per_sec"` // 每个主机的令牌桶速率
	HostBurst      int           `mapstructure:"host_burst"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	SensitiveMinSpacing time.Duration `mapstructure:"sensitive_min_spacing"`
	SensitiveMaxSpacing time.Duration `mapstructure:"sensitive_max_spacing"`
	StandardMinSpacing  time.Duration `mapstructure:"standard_min_spacing"`
	StandardMaxSpacing  time.Duration `mapstructure:"standard_max_spacing"`
	SensitiveCeiling    int           `mapstructure:"sensitive_ceiling"` // 每窗口请求上限
	StandardCeiling     int           `mapstructure:"standard_ceiling"`
	Window              time.Duration `mapstructure:"window"`
	BackoffBase         time.Duration `mapstructure:"backoff_base"`
	BackoffCap          time.Duration `mapstructure:"backoff_cap"`
	BusinessStartHour   int           `mapstructure:"business_start_hour"`
	BusinessEndHour     int           `mapstructure:"business_end_hour"`
	OffPeakStartHour    int           `mapstructure:"off_peak_start_hour"`
	OffPeakEndHour      int           `mapstructure:"off_peak_end_hour"`
	OffPeakFactor       float64       `mapstructure:"off_peak_factor"`
	HumanDelays         bool          `mapstructure:"human_delays"` // 是否在请求前模拟人类停顿
}

// CacheConfig 缓存配置
type CacheConfig struct {
	SearchTTL         time.Duration `mapstructure:"search_ttl"`
	DetailTTL         time.Duration `mapstructure:"detail_ttl"`
	RegionalDetailTTL time.Duration `mapstructure:"regional_detail_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"` // 过期缓存清理间隔
}

// IngestConfig 采集配置
type IngestConfig struct {
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // 批量任务整体截止时间
	Concurrency  int           `mapstructure:"concurrency"`   // 单平台内并发单元上限
	MaxRetries   int           `mapstructure:"max_retries"`   // 单次抓取的最大重试次数
	StaleAfter   time.Duration `mapstructure:"stale_after"`   // 超过该时长未再观测的记录标记为过期
}

// KafkaConfig 入库结果推送配置
type KafkaConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Brokers   []string `mapstructure:"brokers"`
	Topic     string   `mapstructure:"topic"`
	ClientID  string   `mapstructure:"client_id"`
	FlushWait int      `mapstructure:"flush_wait_ms"`
}

// PlatformConfig 单个平台的独立配置
type PlatformConfig struct {
	Enabled       bool                    `mapstructure:"enabled"`
	BaseURL       string                  `mapstructure:"base_url"`         // 站点基础地址
	Timeout       int                     `mapstructure:"timeout"`          // 请求超时（秒），0 使用 http.timeout
	RetryCount    int                     `mapstructure:"retry_count"`      // 重试次数，0 使用 ingest.max_retries
	Proxy         string                  `mapstructure:"proxy"`            // 代理地址
	Sensitive     bool                    `mapstructure:"sensitive"`        // 高敏感平台：更低的请求上限、更长的间隔
	DelayFactor   float64                 `mapstructure:"delay_multiplier"` // 敏感平台延迟倍率，0 使用默认倍率
	Locale        string                  `mapstructure:"locale"`           // 默认语言区域
	DefaultRegion string                  `mapstructure:"default_region"`   // 区域市场默认站点
	Regions       map[string]RegionConfig `mapstructure:"regions"`          // 区域站点
	Clubs         map[string]ClubConfig   `mapstructure:"clubs"`            // 俱乐部地址覆盖
}

// RegionConfig 区域站点
type RegionConfig struct {
	Name     string `mapstructure:"name"`
	BaseURL  string `mapstructure:"base_url"`
	Currency string `mapstructure:"currency"`
	Locale   string `mapstructure:"locale"`
}

// ClubConfig 俱乐部地址覆盖（测试或镜像站点）
type ClubConfig struct {
	URL         string  `mapstructure:"url"`
	APIEndpoint string  `mapstructure:"api_endpoint"`
	Disabled    bool    `mapstructure:"disabled"`
	Sensitive   bool    `mapstructure:"sensitive"`
	DelayFactor float64 `mapstructure:"delay_multiplier"`
}

// LoadConfig 加载配置文件；path 为空时在 ./config 下查找 config.yaml，找不到则只用默认值
// 敏感项从 .env / 环境变量覆盖（不提交 git）
func LoadConfig(path string) (*Config, error) {
	// 1. 加载 .env（若存在）
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TICKETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 2. 读取 config.yaml
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	for name, p := range cfg.Platforms {
		if v := os.Getenv(strings.ToUpper(name) + "_PROXY"); v != "" {
			p.Proxy = v
			cfg.Platforms[name] = p
		}
	}
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port 非法: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver 不支持: %s", c.Database.Driver)
	}
	rl := c.RateLimit
	if rl.SensitiveMinSpacing > rl.SensitiveMaxSpacing || rl.StandardMinSpacing > rl.StandardMaxSpacing {
		return errors.New("rate_limit 最小间隔不能大于最大间隔")
	}
	if rl.SensitiveCeiling <= 0 || rl.StandardCeiling <= 0 {
		return errors.New("rate_limit 窗口上限必须大于0")
	}
	if rl.Window <= 0 {
		return errors.New("rate_limit.window 必须大于0")
	}
	if c.Cache.SearchTTL <= 0 || c.Cache.DetailTTL <= 0 {
		return errors.New("cache ttl 必须大于0")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout 必须大于0")
	}
	if c.Ingest.Concurrency <= 0 {
		return errors.New("ingest.concurrency 必须大于0")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka 启用时必须配置 brokers 和 topic")
	}
	if len(c.Platforms) == 0 {
		return errors.New("至少需要配置一个平台")
	}
	for name, p := range c.Platforms {
		if p.Enabled && p.BaseURL == "" && name != "club_store" {
			return fmt.Errorf("平台%s缺少 base_url", name)
		}
	}
	return nil
}

// RequestTimeout 平台请求超时，未配置时回落到全局值
func (c *Config) RequestTimeout(p *PlatformConfig) time.Duration {
	if p != nil && p.Timeout > 0 {
		return time.Duration(p.Timeout) * time.Second
	}
	return c.HTTP.Timeout
}

// SensitiveSources 合并 sensitive_sources 表与平台、俱乐部级的敏感标记，键统一小写
func (c *Config) SensitiveSources() map[string]float64 {
	out := make(map[string]float64, len(c.Sensitive)+len(c.Platforms))
	for k, v := range c.Sensitive {
		out[strings.ToLower(k)] = v
	}
	for name, p := range c.Platforms {
		if p.Sensitive {
			out[strings.ToLower(name)] = p.DelayFactor
		}
		for key, club := range p.Clubs {
			if club.Sensitive {
				out[strings.ToLower(key)] = club.DelayFactor
			}
		}
	}
	return out
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() gorm.Config {
	return gorm.Config{} // 可扩展：添加日志、命名策略等
}
