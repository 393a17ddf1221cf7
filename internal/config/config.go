package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig   BasicConfig         `json:"basic_config"`
	Upload        UploadConfig        `json:"upload"`
	Transcription TranscriptionConfig `json:"transcription"`
	RateLimit     RateLimitConfig     `json:"rate_limit"`
	Redis         RedisConfig         `json:"redis"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	TempBaseDir   string `json:"temp_base_dir"`
	// Sweeper settings in minutes.
	SweepInterval int `json:"sweep_interval"`
	RetentionAge  int `json:"retention_age"`
}

type UploadConfig struct {
	MaxFileBytes      int64    `json:"max_file_bytes"`
	MaxFiles          int      `json:"max_files"`
	Languages         []string `json:"languages"`
	AllowedExtensions []string `json:"allowed_extensions"`
	AllowedMimeTypes  []string `json:"allowed_mime_types"`
}

type TranscriptionConfig struct {
	Endpoint       string `json:"endpoint"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxConcurrent  int    `json:"max_concurrent"`
}

type RateLimitConfig struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"window_seconds"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

const (
	DefaultMaxFileBytes  = 100 << 20 // 100 MB
	DefaultMaxFiles      = 5
	DefaultMaxConcurrent = 3
	DefaultEndpoint      = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel         = "whisper-1"
)

// Load reads configuration from the provided path (defaults to config.json).
// A missing file is not an error: every field has a usable default so the
// service can start from an empty environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err == nil {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8080"
	}
	if c.BasicConfig.TempBaseDir == "" {
		c.BasicConfig.TempBaseDir = filepath.Join(os.TempDir(), "transcriber_runs")
	}
	if c.BasicConfig.SweepInterval <= 0 {
		c.BasicConfig.SweepInterval = 1
	}
	if c.BasicConfig.RetentionAge <= 0 {
		c.BasicConfig.RetentionAge = 5
	}
	if c.Upload.MaxFileBytes <= 0 {
		c.Upload.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Upload.MaxFiles <= 0 {
		c.Upload.MaxFiles = DefaultMaxFiles
	}
	if len(c.Upload.Languages) == 0 {
		c.Upload.Languages = []string{"en", "pt"}
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{".mp3", ".mpeg"}
	}
	if len(c.Upload.AllowedMimeTypes) == 0 {
		c.Upload.AllowedMimeTypes = []string{"audio/mpeg", "audio/mp3"}
	}
	if c.Transcription.Endpoint == "" {
		c.Transcription.Endpoint = DefaultEndpoint
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = DefaultModel
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = 60
	}
	if c.Transcription.MaxConcurrent <= 0 {
		c.Transcription.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 10
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
}

// SweepInterval returns the sweeper tick interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.BasicConfig.SweepInterval) * time.Minute
}

// RetentionAge returns how long temp run directories may live.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.BasicConfig.RetentionAge) * time.Minute
}

// RequestTimeout returns the per-call transcription timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// RateLimitWindow returns the fixed-window size for the IP limiter.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
