// Package ollama talks to a local Ollama server over its HTTP API.
package ollama

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 5 * time.Minute
)

// Config for the Ollama client.
type Config struct {
	BaseURL     string        // default http://localhost:11434
	Model       string        // e.g., "llama3.2"
	Temperature *float32      // nil leaves the model default
	Timeout     time.Duration // http client timeout, default 5m
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("llm", "ollama", "model", cfg.Model),
	}
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.cfg.Model
}
