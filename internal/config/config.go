package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Directory DirectoryConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	directory, err := LoadDirectoryConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	var metrics MetricsConfig
	if err := envconfig.Process("METRICS", &metrics); err != nil {
		return nil, fmt.Errorf("metrics config: %w", err)
	}

	return &Config{Server: server, Directory: directory, Log: logCfg, Metrics: metrics}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Addr string `ignored:"true"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("server config: %w", err)
	}

	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// DirectoryConfig 描述用户目录上游接口。
type DirectoryConfig struct {
	Endpoint string `envconfig:"ENDPOINT" default:"https://jsonplaceholder.typicode.com/users"`
	// FetchTimeout of zero means the fetch is never cut short.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"0s"`
}

// LoadDirectoryConfig 只加载 DIRECTORY_* 配置，供命令行工具复用。
func LoadDirectoryConfig() (DirectoryConfig, error) {
	var cfg DirectoryConfig
	if err := envconfig.Process("DIRECTORY", &cfg); err != nil {
		return DirectoryConfig{}, fmt.Errorf("directory config: %w", err)
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return DirectoryConfig{}, fmt.Errorf("invalid DIRECTORY_ENDPOINT value: %q", cfg.Endpoint)
	}

	if cfg.FetchTimeout < 0 {
		return DirectoryConfig{}, fmt.Errorf("invalid DIRECTORY_FETCH_TIMEOUT value: %s", cfg.FetchTimeout)
	}
	return cfg, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func loadLogConfig() (LogConfig, error) {
	var cfg LogConfig
	if err := envconfig.Process("LOG", &cfg); err != nil {
		return LogConfig{}, fmt.Errorf("log config: %w", err)
	}

	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value: %q", cfg.Level)
	}

	switch cfg.Format {
	case "json", "console":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value: %q", cfg.Format)
	}
	return cfg, nil
}

// MetricsConfig 控制 /metrics 暴露。
type MetricsConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}
