package ollama

import (
	"log/slog"
	"net/http"
	"time"
)

// Config for the Ollama generation client.
type Config struct {
	BaseURL string        // default http://localhost:11434
	Model   string        // e.g., "llama3"
	Timeout time.Duration // per-call timeout, deployment-tunable
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
