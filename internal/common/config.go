package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file read before environment overrides.
const ConfigFileEnv = "FORMFILL_CONFIG"

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Matching MatchingConfig `yaml:"matching"`
	Temporal TemporalConfig `yaml:"temporal"`
	Quality  QualityConfig  `yaml:"quality"`
	Storage  StorageConfig  `yaml:"storage"`
	Paths    PathsConfig    `yaml:"paths"`
	Daemon   DaemonConfig   `yaml:"daemon"`
}

// LLMConfig holds LLM-related configuration. An empty APIKey disables the LLM strategies.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Deployment  string        `yaml:"deployment"`
	APIVersion  string        `yaml:"api_version"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

type MatchingConfig struct {
	UpdateMargin        float64 `yaml:"update_margin"`
	CompanyUpdateMargin float64 `yaml:"company_update_margin"`
	MinConfidence       float64 `yaml:"min_confidence"`
	ShortCircuit        float64 `yaml:"short_circuit"`
	SimilarityMinLength int     `yaml:"similarity_min_length"`
}

type TemporalConfig struct {
	RecentWindowYears int `yaml:"recent_window_years"`
	OldAfterYears     int `yaml:"old_after_years"`
	MinScore          int `yaml:"min_score"`
}

type QualityConfig struct {
	MaxIterations      int `yaml:"max_iterations"`
	MaxDocumentAgeDays int `yaml:"max_document_age_days"`
	// ContextCheck enables the LLM review of document dates against the sources.
	ContextCheck bool `yaml:"context_check"`
}

// StorageConfig holds run report persistence settings. DSN selects the backend by scheme.
type StorageConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

type PathsConfig struct {
	DataDir    string `yaml:"data_dir"`
	FormPath   string `yaml:"form"`
	SamplePath string `yaml:"sample"`
	OutputDir  string `yaml:"output_dir"`
	ReportDir  string `yaml:"report_dir"`
	InboxDir   string `yaml:"inbox_dir"`
	RulesPath  string `yaml:"rules"`
}

type DaemonConfig struct {
	GRPCAddr   string        `yaml:"grpc_addr"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
	Debounce   time.Duration `yaml:"debounce"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.0,
			Timeout:     45 * time.Second,
			MaxRetries:  2,
		},
		Matching: MatchingConfig{
			UpdateMargin:        0.05,
			CompanyUpdateMargin: 0.1,
			MinConfidence:       0.5,
			ShortCircuit:        0.95,
			SimilarityMinLength: 3,
		},
		Temporal: TemporalConfig{
			RecentWindowYears: 1,
			OldAfterYears:     5,
			MinScore:          10,
		},
		Quality: QualityConfig{
			MaxIterations:      2,
			MaxDocumentAgeDays: 365,
			ContextCheck:       true,
		},
		Storage: StorageConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Paths: PathsConfig{
			DataDir:   "./data",
			OutputDir: "./output",
			ReportDir: "./output/reports",
			InboxDir:  "./inbox",
		},
		Daemon: DaemonConfig{
			GRPCAddr:   ":8080",
			Workers:    2,
			QueueSize:  32,
			JobTimeout: 10 * time.Minute,
			Debounce:   500 * time.Millisecond,
		},
	}
}

// LoadConfig loads defaults, then the optional FORMFILL_CONFIG file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read config %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.Deployment = getEnv("AZURE_OPENAI_DEPLOYMENT", c.LLM.Deployment)
	c.LLM.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", c.LLM.APIVersion)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvAsInt("OPENAI_MAX_RETRIES", c.LLM.MaxRetries)

	c.Matching.UpdateMargin = getEnvAsFloat64("MATCH_UPDATE_MARGIN", c.Matching.UpdateMargin)
	c.Matching.CompanyUpdateMargin = getEnvAsFloat64("MATCH_COMPANY_UPDATE_MARGIN", c.Matching.CompanyUpdateMargin)
	c.Matching.MinConfidence = getEnvAsFloat64("MATCH_MIN_CONFIDENCE", c.Matching.MinConfidence)
	c.Matching.ShortCircuit = getEnvAsFloat64("MATCH_SHORT_CIRCUIT", c.Matching.ShortCircuit)
	c.Matching.SimilarityMinLength = getEnvAsInt("MATCH_SIMILARITY_MIN_LENGTH", c.Matching.SimilarityMinLength)

	c.Temporal.RecentWindowYears = getEnvAsInt("TEMPORAL_RECENT_WINDOW_YEARS", c.Temporal.RecentWindowYears)
	c.Temporal.OldAfterYears = getEnvAsInt("TEMPORAL_OLD_AFTER_YEARS", c.Temporal.OldAfterYears)
	c.Temporal.MinScore = getEnvAsInt("TEMPORAL_MIN_SCORE", c.Temporal.MinScore)

	c.Quality.MaxIterations = getEnvAsInt("QUALITY_MAX_ITERATIONS", c.Quality.MaxIterations)
	c.Quality.MaxDocumentAgeDays = getEnvAsInt("QUALITY_MAX_DOCUMENT_AGE_DAYS", c.Quality.MaxDocumentAgeDays)
	c.Quality.ContextCheck = getEnvAsBool("QUALITY_CONTEXT_CHECK", c.Quality.ContextCheck)

	c.Storage.DSN = getEnv("DB_URL", c.Storage.DSN)
	c.Storage.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Storage.MaxConns)
	c.Storage.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Storage.MinConns)
	c.Storage.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Storage.MaxConnLifetime)
	c.Storage.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Storage.MaxConnIdleTime)
	c.Storage.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Storage.DialTimeout)

	c.Paths.DataDir = getEnv("DATA_DIR", c.Paths.DataDir)
	c.Paths.FormPath = getEnv("FORM_PATH", c.Paths.FormPath)
	c.Paths.SamplePath = getEnv("SAMPLE_PATH", c.Paths.SamplePath)
	c.Paths.OutputDir = getEnv("OUTPUT_DIR", c.Paths.OutputDir)
	c.Paths.ReportDir = getEnv("REPORT_DIR", c.Paths.ReportDir)
	c.Paths.InboxDir = getEnv("INBOX_DIR", c.Paths.InboxDir)
	c.Paths.RulesPath = getEnv("FORMFILL_RULES_PATH", c.Paths.RulesPath)

	c.Daemon.GRPCAddr = getEnv("GRPC_ADDR", c.Daemon.GRPCAddr)
	c.Daemon.Workers = getEnvAsInt("WORKERS", c.Daemon.Workers)
	c.Daemon.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Daemon.QueueSize)
	c.Daemon.JobTimeout = getEnvAsDuration("JOB_TIMEOUT", c.Daemon.JobTimeout)
	c.Daemon.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Daemon.Debounce)
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("matching.update_margin", c.Matching.UpdateMargin, Range(0, 1)).
		Field("matching.company_update_margin", c.Matching.CompanyUpdateMargin, Range(0, 1)).
		Field("matching.min_confidence", c.Matching.MinConfidence, Range(0, 1)).
		Field("matching.short_circuit", c.Matching.ShortCircuit, Range(0, 1)).
		Field("matching.similarity_min_length", c.Matching.SimilarityMinLength, Range(1, 64)).
		Field("quality.max_iterations", c.Quality.MaxIterations, Range(0, 10)).
		Field("quality.max_document_age_days", c.Quality.MaxDocumentAgeDays, Range(1, 36500)).
		Field("llm.temperature", c.LLM.Temperature, Range(0, 2)).
		Field("daemon.workers", c.Daemon.Workers, Range(1, 64)).
		Field("daemon.queue_size", c.Daemon.QueueSize, Range(1, 100000))
	if c.LLM.APIKey != "" {
		v.Field("llm.api_key", c.LLM.APIKey, MinLength(8)).
			Field("llm.base_url", c.LLM.BaseURL, Required).
			Field("llm.model", c.LLM.Model, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// DaemonValidate checks the settings only the daemon needs.
func (c *Config) DaemonValidate() error {
	v := NewValidator().
		Field("daemon.grpc_addr", c.Daemon.GRPCAddr, Required).
		Field("paths.inbox_dir", c.Paths.InboxDir, Required)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
