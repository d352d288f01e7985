package common

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Pipeline PipelineConfig
	Gmail    GmailConfig
	AI       AIConfig
	OCR      OCRConfig
	Report   ReportConfig
	Database DatabaseConfig
	Log      LogConfig
}

// PipelineConfig holds batch processing settings.
type PipelineConfig struct {
	Workers          int
	AIConcurrency    int
	ProcessTimeout   time.Duration
	WorkingFolder    string
	DownloadInvoices bool
	WatchDebounce    time.Duration
}

// GmailConfig holds mailbox download settings.
type GmailConfig struct {
	CredentialsFile   string
	TokenFile         string
	Query             string
	User              string
	RequestsPerSecond float64
	Burst             int
}

// AIConfig holds settings for the categorizer/narrator backend.
type AIConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// OCRConfig holds text-extraction settings.
type OCRConfig struct {
	Pdftotext    string
	ScanFallback bool
	Lang         string
}

// ReportConfig holds output sink settings.
type ReportConfig struct {
	Dir        string
	Name       string
	XLSX       bool
	Open       bool
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
	S3Access   string
	S3Secret   string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

const (
	AIProviderOllama = "ollama"
	AIProviderOpenAI = "openai"
)

// LoadConfig reads configuration from an optional file plus INVOICES_* environment variables.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOICES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file "+configFile, err)
		}
	} else {
		v.SetConfigName("invoice-analyzer")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError("CONFIG_ERROR", "read config file", err)
			}
		}
	}

	cfg := &Config{
		Pipeline: PipelineConfig{
			Workers:          v.GetInt("workers"),
			AIConcurrency:    v.GetInt("ai_concurrency"),
			ProcessTimeout:   v.GetDuration("process_timeout"),
			WorkingFolder:    v.GetString("working_folder"),
			DownloadInvoices: v.GetBool("download_invoices"),
			WatchDebounce:    v.GetDuration("watch_debounce"),
		},
		Gmail: GmailConfig{
			CredentialsFile:   v.GetString("gmail.credentials_file"),
			TokenFile:         v.GetString("gmail.token_file"),
			Query:             v.GetString("gmail.query"),
			User:              v.GetString("gmail.user"),
			RequestsPerSecond: v.GetFloat64("gmail.requests_per_second"),
			Burst:             v.GetInt("gmail.burst"),
		},
		AI: AIConfig{
			Provider:    strings.ToLower(v.GetString("ai.provider")),
			Model:       v.GetString("ai.model"),
			BaseURL:     v.GetString("ai.base_url"),
			APIKey:      v.GetString("ai.api_key"),
			Temperature: float32(v.GetFloat64("ai.temperature")),
			Timeout:     v.GetDuration("ai.timeout"),
		},
		OCR: OCRConfig{
			Pdftotext:    v.GetString("ocr.pdftotext"),
			ScanFallback: v.GetBool("ocr.scan_fallback"),
			Lang:         v.GetString("ocr.lang"),
		},
		Report: ReportConfig{
			Dir:        v.GetString("report.dir"),
			Name:       v.GetString("report.name"),
			XLSX:       v.GetBool("report.xlsx"),
			Open:       v.GetBool("report.open"),
			S3Bucket:   v.GetString("report.s3_bucket"),
			S3Prefix:   v.GetString("report.s3_prefix"),
			S3Region:   v.GetString("report.s3_region"),
			S3Endpoint: v.GetString("report.s3_endpoint"),
			S3Access:   v.GetString("report.s3_access_key"),
			S3Secret:   v.GetString("report.s3_secret_key"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("db.dsn"),
			MaxOpenConns:    v.GetInt32("db.max_conns"),
			MinConns:        v.GetInt32("db.min_conns"),
			MaxConnLifetime: v.GetDuration("db.max_conn_lifetime"),
			MaxConnIdleTime: v.GetDuration("db.max_conn_idle_time"),
			DialTimeout:     v.GetDuration("db.dial_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 5)
	v.SetDefault("ai_concurrency", 3)
	v.SetDefault("process_timeout", "3m")
	v.SetDefault("working_folder", "./invoices")
	v.SetDefault("download_invoices", true)
	v.SetDefault("watch_debounce", "2s")

	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.query", "has:attachment filename:pdf")
	v.SetDefault("gmail.user", "me")
	v.SetDefault("gmail.requests_per_second", 2.0)
	v.SetDefault("gmail.burst", 5)

	v.SetDefault("ai.provider", AIProviderOllama)
	v.SetDefault("ai.model", "llama3.2")
	v.SetDefault("ai.base_url", "http://localhost:11434")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.timeout", "5m")

	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.scan_fallback", false)
	v.SetDefault("ocr.lang", "spa+eng")

	v.SetDefault("report.dir", "Reports")
	v.SetDefault("report.name", "summary.IA.html")
	v.SetDefault("report.xlsx", false)
	v.SetDefault("report.open", false)
	v.SetDefault("report.s3_bucket", "")
	v.SetDefault("report.s3_prefix", "reports/")
	v.SetDefault("report.s3_region", "us-east-1")
	v.SetDefault("report.s3_endpoint", "")
	v.SetDefault("report.s3_access_key", "")
	v.SetDefault("report.s3_secret_key", "")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "5m")
	v.SetDefault("db.dial_timeout", "3s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("workers", c.Pipeline.Workers, Positive).
		Field("ai_concurrency", c.Pipeline.AIConcurrency, Positive).
		Field("working_folder", c.Pipeline.WorkingFolder, Required).
		Field("ai.provider", c.AI.Provider, OneOf(AIProviderOllama, AIProviderOpenAI)).
		Field("ai.model", c.AI.Model, Required).
		Field("log.format", c.Log.Format, OneOf("json", "text")).
		Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "error"))
	if c.AI.Provider == AIProviderOpenAI {
		v.Field("ai.api_key", c.AI.APIKey, Required)
	}
	if c.Pipeline.DownloadInvoices {
		v.Field("gmail.credentials_file", c.Gmail.CredentialsFile, Required).
			Field("gmail.query", c.Gmail.Query, Required)
	}
	return ValidateAndReturnError(v)
}

// ReportPath is where the HTML report lands.
func (r ReportConfig) ReportPath() string {
	return filepath.Join(r.Dir, r.Name)
}

func (c *Config) String() string {
	return fmt.Sprintf("workers=%d ai_concurrency=%d provider=%s model=%s folder=%s download=%t",
		c.Pipeline.Workers, c.Pipeline.AIConcurrency, c.AI.Provider, c.AI.Model,
		c.Pipeline.WorkingFolder, c.Pipeline.DownloadInvoices)
}
