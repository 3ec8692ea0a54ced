// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Paths содержит каталоги пайплайна.
type Paths struct {
	RawDir       string `json:"raw_dir" yaml:"raw_dir"`
	ProcessedDir string `json:"processed_dir" yaml:"processed_dir"`
	OutDir       string `json:"out_dir" yaml:"out_dir"`
	AggDir       string `json:"agg_dir" yaml:"agg_dir"`
}

// Server содержит конфигурацию HTTP-сервера задач.
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	MaxUploadSizeMB        int    `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
}

// Processing содержит конфигурацию обработки.
type Processing struct {
	TaskTTLMinutes  int `json:"task_ttl_minutes" yaml:"task_ttl_minutes"`
	CacheTTLMinutes int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
}

// Analysis содержит пороги поведенческих метрик.
type Analysis struct {
	MinAuthorMessages int `json:"min_author_messages" yaml:"min_author_messages"`
	MattrWindow       int `json:"mattr_window" yaml:"mattr_window"`
}

// Logging содержит конфигурацию логирования.
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения.
type Config struct {
	Paths      Paths      `json:"paths" yaml:"paths"`
	Server     Server     `json:"server" yaml:"server"`
	Processing Processing `json:"processing" yaml:"processing"`
	Analysis   Analysis   `json:"analysis" yaml:"analysis"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из config.yml, .env файла
// или переменных окружения; отсутствующие значения берутся из умолчаний.
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Отсутствие .env — нормальная ситуация
	}

	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// applyDefaults заполняет незаданные поля значениями по умолчанию.
func (c *Config) applyDefaults() {
	if c.Paths.RawDir == "" {
		c.Paths.RawDir = DefaultRawDir
	}
	if c.Paths.ProcessedDir == "" {
		c.Paths.ProcessedDir = DefaultProcessedDir
	}
	if c.Paths.OutDir == "" {
		c.Paths.OutDir = DefaultOutDir
	}
	if c.Paths.AggDir == "" {
		c.Paths.AggDir = DefaultAggDir
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	}
	if c.Server.MaxUploadSizeMB == 0 {
		c.Server.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if c.Processing.TaskTTLMinutes == 0 {
		c.Processing.TaskTTLMinutes = DefaultTaskTTLMinutes
	}
	if c.Processing.CacheTTLMinutes == 0 {
		c.Processing.CacheTTLMinutes = DefaultCacheTTLMinutes
	}
	if c.Analysis.MinAuthorMessages == 0 {
		c.Analysis.MinAuthorMessages = DefaultMinAuthorMessages
	}
	if c.Analysis.MattrWindow == 0 {
		c.Analysis.MattrWindow = DefaultMattrWindow
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// applyEnv перекрывает конфигурацию переменными окружения (обратная совместимость).
func (c *Config) applyEnv() {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("OUT_DIR"); v != "" {
		c.Paths.OutDir = v
	}
	if v := os.Getenv("AGG_DIR"); v != "" {
		c.Paths.AggDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			c.Processing.CacheTTLMinutes = ttl
		}
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Processing.TaskTTLMinutes <= 0 {
		return fmt.Errorf("processing.task_ttl_minutes должно быть положительным")
	}

	if c.Processing.CacheTTLMinutes <= 0 {
		return fmt.Errorf("processing.cache_ttl_minutes должно быть положительным целым числом")
	}

	if c.Analysis.MinAuthorMessages <= 0 {
		return fmt.Errorf("analysis.min_author_messages должно быть положительным")
	}

	if c.Analysis.MattrWindow <= 0 {
		return fmt.Errorf("analysis.mattr_window должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}
