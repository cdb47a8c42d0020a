package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Speech     SpeechConfig     `yaml:"speech"`
	Audio      AudioConfig      `yaml:"audio"`
	Capture    CaptureConfig    `yaml:"capture"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // postgres | sqlite
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey                string        `yaml:"api_key"`
	BaseURL               string        `yaml:"base_url"`
	Model                 string        `yaml:"model"`
	ExtractionTemperature float32       `yaml:"extraction_temperature"`
	EnrichmentTemperature float32       `yaml:"enrichment_temperature"`
	ExtractionMaxTokens   int           `yaml:"extraction_max_tokens"`
	EnrichmentMaxTokens   int           `yaml:"enrichment_max_tokens"`
	Timeout               time.Duration `yaml:"timeout"`
}

// SpeechConfig controls the streaming recognizer.
type SpeechConfig struct {
	DeepgramAPIKey string        `yaml:"deepgram_api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	Language       string        `yaml:"language"`
	RestartDelay   time.Duration `yaml:"restart_delay"`
}

// AudioConfig selects where PCM comes from.
type AudioConfig struct {
	Source     string `yaml:"source"` // pulse | file | stdin
	Device     string `yaml:"device"`
	File       string `yaml:"file"`
	SampleRate int    `yaml:"sample_rate"`
}

type CaptureConfig struct {
	QuietPeriod time.Duration `yaml:"quiet_period"`
}

type EnrichmentConfig struct {
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:estate-logger.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":9090",
		},
		LLM: LLMConfig{
			BaseURL:               "https://api.deepseek.com",
			Model:                 "deepseek-chat",
			ExtractionTemperature: 0.1,
			EnrichmentTemperature: 0.2,
			ExtractionMaxTokens:   4096,
			EnrichmentMaxTokens:   2048,
			Timeout:               60 * time.Second,
		},
		Speech: SpeechConfig{
			BaseURL:      "https://api.deepgram.com/v1",
			Model:        "nova-2",
			Language:     "en-US",
			RestartDelay: time.Second,
		},
		Audio: AudioConfig{
			Source:     "pulse",
			Device:     "default",
			SampleRate: 16000,
		},
		Capture: CaptureConfig{
			QuietPeriod: 3 * time.Second,
		},
		Enrichment: EnrichmentConfig{
			Workers:   2,
			QueueSize: 64,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfigFile reads a YAML file over the defaults, then applies
// environment overrides. An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.LLM.APIKey = getEnv("DEEPSEEK_API_KEY", getEnv("LLM_API_KEY", c.LLM.APIKey))
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.ExtractionTemperature = getEnvAsFloat32("LLM_EXTRACTION_TEMPERATURE", c.LLM.ExtractionTemperature)
	c.LLM.EnrichmentTemperature = getEnvAsFloat32("LLM_ENRICHMENT_TEMPERATURE", c.LLM.EnrichmentTemperature)
	c.LLM.ExtractionMaxTokens = getEnvAsInt("LLM_EXTRACTION_MAX_TOKENS", c.LLM.ExtractionMaxTokens)
	c.LLM.EnrichmentMaxTokens = getEnvAsInt("LLM_ENRICHMENT_MAX_TOKENS", c.LLM.EnrichmentMaxTokens)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Speech.DeepgramAPIKey = getEnv("DEEPGRAM_API_KEY", c.Speech.DeepgramAPIKey)
	c.Speech.BaseURL = getEnv("DEEPGRAM_API_BASE", c.Speech.BaseURL)
	c.Speech.Model = getEnv("DEEPGRAM_MODEL", c.Speech.Model)
	c.Speech.Language = getEnv("DEEPGRAM_LANGUAGE", c.Speech.Language)
	c.Speech.RestartDelay = getEnvAsDuration("SPEECH_RESTART_DELAY", c.Speech.RestartDelay)

	c.Audio.Source = getEnv("AUDIO_SOURCE", c.Audio.Source)
	c.Audio.Device = getEnv("AUDIO_DEVICE", c.Audio.Device)
	c.Audio.File = getEnv("AUDIO_FILE", c.Audio.File)
	c.Audio.SampleRate = getEnvAsInt("AUDIO_SAMPLE_RATE", c.Audio.SampleRate)

	c.Capture.QuietPeriod = getEnvAsDuration("CAPTURE_QUIET_PERIOD", c.Capture.QuietPeriod)

	c.Enrichment.Workers = getEnvAsInt("ENRICH_WORKERS", c.Enrichment.Workers)
	c.Enrichment.QueueSize = getEnvAsInt("ENRICH_QUEUE_SIZE", c.Enrichment.QueueSize)
	c.Enrichment.RunTimeout = getEnvAsDuration("ENRICH_RUN_TIMEOUT", c.Enrichment.RunTimeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q must be postgres or sqlite", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Capture.QuietPeriod <= 0 {
		return NewAppError("CONFIG_ERROR", "CAPTURE_QUIET_PERIOD must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateLLM is required by commands that call the language model.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "DEEPSEEK_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// ValidateServer is required by the serve command.
func (c *Config) ValidateServer() error {
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
