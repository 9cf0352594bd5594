// Package chassis 提供 ScheduleAgent 核心框架
package chassis

import (
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/llm"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      llm.Config     `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Intent   IntentConfig   `mapstructure:"intent"`
	Provider ProviderConfig `mapstructure:"provider"`
	Remind   RemindConfig   `mapstructure:"remind"`
}

// TelegramConfig Telegram Bot 配置
type TelegramConfig struct {
	// Enabled 是否启用 Telegram Bot
	Enabled bool `mapstructure:"enabled"`

	// Token Bot Token
	Token string `mapstructure:"token"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// Host 监听地址
	Host string `mapstructure:"host"`

	// Port 监听端口
	Port int `mapstructure:"port"`

	// Mode 运行模式：debug, release, test
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 数据库文件路径
	Path string `mapstructure:"path"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format 日志格式：text, json
	Format string `mapstructure:"format"`

	// Output 输出目标：stdout, file
	Output string `mapstructure:"output"`

	// FilePath 日志文件路径（当 Output 为 file 时生效）
	FilePath string `mapstructure:"file_path"`
}

// DispatchConfig 消息分发配置
type DispatchConfig struct {
	// QueueSize 单用户队列容量
	QueueSize int `mapstructure:"queue_size"`

	// IdleTimeout 空闲用户队列回收阈值
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// IntentConfig 意图分类配置
type IntentConfig struct {
	// Classifier 分类器类型：rule, llm
	Classifier string `mapstructure:"classifier"`

	// Threshold 置信度阈值，低于阈值落到 general_query
	Threshold float64 `mapstructure:"threshold"`
}

// ProviderConfig Provider 调用配置
type ProviderConfig struct {
	// CallTimeout 单次 Provider 调用超时
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// RemindConfig 事件提醒配置
type RemindConfig struct {
	// Enabled 是否启用事件开始前提醒
	Enabled bool `mapstructure:"enabled"`

	// Lead 提前量，提醒在事件开始前该时长触发
	Lead time.Duration `mapstructure:"lead"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "debug",
		},
		LLM: llm.Config{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4",
			Timeout:     60,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Database: DatabaseConfig{
			Path: "~/.scheduleagent/data.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Telegram: TelegramConfig{
			Enabled: false,
			Token:   "",
		},
		Dispatch: DispatchConfig{
			QueueSize:   64,
			IdleTimeout: 10 * time.Minute,
		},
		Intent: IntentConfig{
			Classifier: "rule",
			Threshold:  0.5,
		},
		Provider: ProviderConfig{
			CallTimeout: 10 * time.Second,
		},
		Remind: RemindConfig{
			Enabled: true,
			Lead:    10 * time.Minute,
		},
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithServerPort 设置服务器端口
func WithServerPort(port int) Option {
	return func(c *Config) {
		c.Server.Port = port
	}
}

// WithServerMode 设置运行模式
func WithServerMode(mode string) Option {
	return func(c *Config) {
		c.Server.Mode = mode
	}
}

// WithLLMConfig 设置 LLM 配置
func WithLLMConfig(cfg llm.Config) Option {
	return func(c *Config) {
		c.LLM = cfg
	}
}

// WithLogLevel 设置日志级别
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Log.Level = level
	}
}

// WithDatabasePath 设置数据库路径
func WithDatabasePath(path string) Option {
	return func(c *Config) {
		c.Database.Path = path
	}
}

// WithTelegram 设置 Telegram 配置
func WithTelegram(t TelegramConfig) Option {
	return func(c *Config) {
		c.Telegram = t
	}
}

// WithDispatch 设置分发配置
func WithDispatch(d DispatchConfig) Option {
	return func(c *Config) {
		c.Dispatch = d
	}
}

// WithIntent 设置意图分类配置
func WithIntent(i IntentConfig) Option {
	return func(c *Config) {
		c.Intent = i
	}
}

// WithProvider 设置 Provider 调用配置
func WithProvider(p ProviderConfig) Option {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithRemind 设置事件提醒配置
func WithRemind(r RemindConfig) Option {
	return func(c *Config) {
		c.Remind = r
	}
}

// SessionConfig 会话配置
type SessionConfig struct {
	// MaxHistory 最大历史消息数
	MaxHistory int

	// TTL 会话过期时间
	TTL time.Duration
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		MaxHistory: 20,
		TTL:        30 * time.Minute,
	}
}
