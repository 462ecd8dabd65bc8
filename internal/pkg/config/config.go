package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ci-dashboard/pkg/constants"
)

// Config 全局配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Core         CoreConfig         `mapstructure:"core"`
	GitHub       GitHubConfig       `mapstructure:"github"`
	Backfill     BackfillConfig     `mapstructure:"backfill"`
	Dashboard    DashboardConfig    `mapstructure:"dashboard"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"` // sqlite 时为文件路径
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"` // 仅 postgres
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// CoreConfig 关联修复引擎配置
type CoreConfig struct {
	LinkInterval string `mapstructure:"link_interval"` // 外键补齐间隔，如 5m
}

// GitHubConfig GitHub 接口配置
type GitHubConfig struct {
	BaseURL string   `mapstructure:"base_url"`
	Token   string   `mapstructure:"token"`
	Timeout string   `mapstructure:"timeout"`
	Repos   []string `mapstructure:"repos"` // owner/name
}

// BackfillConfig 回填任务配置
type BackfillConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Cron         string `mapstructure:"cron"` // 秒 分 时 日 月 周
	LookbackDays int    `mapstructure:"lookback_days"`
	MaxPages     int    `mapstructure:"max_pages"`
	Concurrency  int    `mapstructure:"concurrency"`
	FetchTiming  bool   `mapstructure:"fetch_timing"` // 拉取 run_duration_ms
	FetchJobs    bool   `mapstructure:"fetch_jobs"`   // 拉取 job 标签
}

// DashboardConfig 看板口径配置
type DashboardConfig struct {
	MainBranch            string `mapstructure:"main_branch"`
	StrictWorkflowPattern string `mapstructure:"strict_workflow_pattern"` // 区分 broken/flaky
	Timezone              string `mapstructure:"timezone"`                // 按日聚合使用的时区
	DefaultDays           int    `mapstructure:"default_days"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // 是否启用
	Provider    string `mapstructure:"provider"`     // lark, log
	LarkWebhook string `mapstructure:"lark_webhook"` // Lark Webhook
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// 环境变量覆盖，如 GITHUB_TOKEN、DATABASE_PASSWORD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "ci-dashboard")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "silent")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("core.link_interval", "5m")

	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.timeout", "30s")
	// 让 GITHUB_TOKEN 在配置文件未写 token 时也能生效
	v.SetDefault("github.token", "")

	v.SetDefault("backfill.cron", "0 */30 * * * *")
	v.SetDefault("backfill.lookback_days", 7)
	v.SetDefault("backfill.max_pages", 10)
	v.SetDefault("backfill.concurrency", 4)

	v.SetDefault("dashboard.main_branch", constants.DefaultMainBranch)
	v.SetDefault("dashboard.strict_workflow_pattern", constants.DefaultStrictPattern)
	v.SetDefault("dashboard.timezone", "UTC")
	v.SetDefault("dashboard.default_days", constants.DefaultDays)

	v.SetDefault("notification.provider", "log")
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
	case "sqlite":
		return c.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Username,
			c.Password,
			c.Host,
			c.Port,
			c.Database,
		)
	}
}

// Location 按日聚合使用的时区，解析失败回落 UTC
func (c *DashboardConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDuration 解析时长配置，空串或非法值返回 fallback
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
