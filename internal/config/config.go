package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevSessionSecret 是未配置 SESSION_SECRET 时使用的开发密钥，release 模式下不允许使用。
const DevSessionSecret = "quillpost-dev-secret"

// ErrInsecureSessionSecret 表示 release 模式下仍在使用开发密钥。
var ErrInsecureSessionSecret = errors.New("SESSION_SECRET must be set when GIN_MODE is release")

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string     `yaml:"listen_addr"`
	Port              string     `yaml:"port"`
	DatabasePath      string     `yaml:"database_path"`
	SessionSecret     string     `yaml:"session_secret"`
	GinMode           string     `yaml:"gin_mode"`
	SiteBaseURL       string     `yaml:"site_base_url"`
	PageSize          int        `yaml:"page_size"`
	LogLevel          string     `yaml:"log_level"`
	LogFormat         string     `yaml:"log_format"`
	SuperRootUserName string     `yaml:"super_root_user_name"`
	SuperRootPassword string     `yaml:"super_root_password"`
	SuperRootEmail    string     `yaml:"super_root_email"`
	Mail              MailConfig `yaml:"mail"`
}

// MailConfig 描述回复通知邮件的发送参数。
type MailConfig struct {
	SMTPHost     string        `yaml:"smtp_host"`
	SMTPPort     int           `yaml:"smtp_port"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	From         string        `yaml:"from"`
	FromName     string        `yaml:"from_name"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 若设置了 CONFIG_FILE，则先读取该 YAML 文件，环境变量优先级更高。
func Load() (AppConfig, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom 与 Load 相同，但 YAML 文件路径由调用方给出，为空时只读取环境变量。
func LoadFrom(path string) (AppConfig, error) {
	var fileCfg AppConfig
	if path = strings.TrimSpace(path); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return AppConfig{}, err
		}
		fileCfg = loaded
	}

	port := stringValue("PORT", fileCfg.Port, "8080")

	listenAddr := stringValue("LISTEN_ADDR", fileCfg.ListenAddr, "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	cfg := AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      stringValue("DATABASE_PATH", fileCfg.DatabasePath, "quillpost.db"),
		SessionSecret:     stringValue("SESSION_SECRET", fileCfg.SessionSecret, DevSessionSecret),
		GinMode:           stringValue("GIN_MODE", fileCfg.GinMode, "release"),
		SiteBaseURL:       strings.TrimRight(stringValue("SITE_BASE_URL", fileCfg.SiteBaseURL, "http://localhost:8080"), "/"),
		PageSize:          intValue("PAGE_SIZE", fileCfg.PageSize, 20),
		LogLevel:          stringValue("LOG_LEVEL", fileCfg.LogLevel, "info"),
		LogFormat:         stringValue("LOG_FORMAT", fileCfg.LogFormat, "json"),
		SuperRootUserName: stringValue("SUPER_ROOT_USER_NAME", fileCfg.SuperRootUserName, ""),
		SuperRootPassword: stringValue("SUPER_ROOT_PASSWORD", fileCfg.SuperRootPassword, ""),
		SuperRootEmail:    stringValue("SUPER_ROOT_EMAIL", fileCfg.SuperRootEmail, ""),
		Mail: MailConfig{
			SMTPHost:     stringValue("SMTP_HOST", fileCfg.Mail.SMTPHost, ""),
			SMTPPort:     intValue("SMTP_PORT", fileCfg.Mail.SMTPPort, 587),
			Username:     stringValue("SMTP_USERNAME", fileCfg.Mail.Username, ""),
			Password:     stringValue("SMTP_PASSWORD", fileCfg.Mail.Password, ""),
			From:         stringValue("MAIL_FROM", fileCfg.Mail.From, "noreply@quillpost.local"),
			FromName:     stringValue("MAIL_FROM_NAME", fileCfg.Mail.FromName, "Quillpost"),
			Timeout:      durationValue("MAIL_TIMEOUT", fileCfg.Mail.Timeout, 10*time.Second),
			MaxAttempts:  intValue("MAIL_MAX_ATTEMPTS", fileCfg.Mail.MaxAttempts, 5),
			Workers:      intValue("MAIL_WORKERS", fileCfg.Mail.Workers, 2),
			PollInterval: durationValue("MAIL_POLL_INTERVAL", fileCfg.Mail.PollInterval, 5*time.Second),
		},
	}

	return cfg, nil
}

// ReleaseMode 判断是否以 release 模式运行；debug 与 test 以外的取值均视为 release。
func (c AppConfig) ReleaseMode() bool {
	switch strings.ToLower(strings.TrimSpace(c.GinMode)) {
	case "debug", "test":
		return false
	default:
		return true
	}
}

// Validate 检查服务启动前必须满足的配置约束。
func (c AppConfig) Validate() error {
	if c.ReleaseMode() && c.SessionSecret == DevSessionSecret {
		return ErrInsecureSessionSecret
	}
	return nil
}

// LoadFile 解析 YAML 配置文件。
func LoadFile(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func stringValue(key, fileValue, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if value := strings.TrimSpace(fileValue); value != "" {
		return value
	}
	return fallback
}

func intValue(key string, fileValue, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	if fileValue > 0 {
		return fileValue
	}
	return fallback
}

func durationValue(key string, fileValue, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	if fileValue > 0 {
		return fileValue
	}
	return fallback
}
