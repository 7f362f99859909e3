package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mode selects whether the pipeline talks to real external APIs or
// synthesizes equivalent data locally.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// Config holds all configuration for the application. The live/demo choice is
// resolved once at load time and carried in the struct; nothing downstream
// reads the process environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Meta     MetaConfig     `yaml:"meta"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Image    ImageConfig    `yaml:"image"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MetaConfig holds Meta Marketing API credentials
type MetaConfig struct {
	AccessToken    string `yaml:"access_token"`
	AdAccountID    string `yaml:"ad_account_id"`
	PageID         string `yaml:"page_id"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Configured reports whether every Meta credential is present. The bundle is
// all-or-nothing: a partial credential set still runs in demo mode.
func (m MetaConfig) Configured() bool {
	return m.AccessToken != "" && m.AdAccountID != "" && m.PageID != ""
}

func (m MetaConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// OpenAIConfig holds LLM provider settings for the analysis engine
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (o OpenAIConfig) Configured() bool { return o.APIKey != "" }

func (o OpenAIConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// ImageConfig holds image-generation provider settings
type ImageConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (i ImageConfig) Configured() bool { return i.APIKey != "" }

func (i ImageConfig) Timeout() time.Duration {
	if i.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// StorageConfig selects the asset/report store backend
type StorageConfig struct {
	Type        string `yaml:"type"` // "memory", "s3", "redis", "postgres"
	S3Bucket    string `yaml:"s3_bucket"`
	AWSRegion   string `yaml:"aws_region"`
	AWSProfile  string `yaml:"aws_profile"`
	RedisAddr   string `yaml:"redis_addr"`
	DatabaseURL string `yaml:"database_url"`
}

// PipelineConfig holds orchestrator defaults
type PipelineConfig struct {
	DateRangeDays       int `yaml:"date_range_days"`
	MaxDecisions        int `yaml:"max_decisions"`
	MaxCreativeAttempts int `yaml:"max_creative_attempts"`
}

// AnalysisConfig holds the rule-engine thresholds
type AnalysisConfig struct {
	LowCTRThreshold   float64 `yaml:"low_ctr_threshold"`   // avg CTR below this triggers creative refresh
	HighROASThreshold float64 `yaml:"high_roas_threshold"` // ROAS above this triggers budget reallocation
	PauseCTRThreshold float64 `yaml:"pause_ctr_threshold"` // per-ad CTR below this triggers a pause
}

// Load reads configuration from a YAML file and applies environment overrides.
// A missing file is not an error; the result is a demo-mode config with defaults.
func Load(path string) (*Config, error) {
	// Load .env file if present (ignore errors - file may not exist)
	_ = godotenv.Load()

	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("META_ACCESS_TOKEN"); v != "" {
		c.Meta.AccessToken = v
	}
	if v := os.Getenv("META_AD_ACCOUNT_ID"); v != "" {
		c.Meta.AdAccountID = v
	}
	if v := os.Getenv("META_PAGE_ID"); v != "" {
		c.Meta.PageID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("IMAGE_API_KEY"); v != "" {
		c.Image.APIKey = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Meta.BaseURL == "" {
		c.Meta.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Pipeline.DateRangeDays == 0 {
		c.Pipeline.DateRangeDays = 30
	}
	if c.Pipeline.MaxDecisions == 0 {
		c.Pipeline.MaxDecisions = 5
	}
	if c.Pipeline.MaxCreativeAttempts == 0 {
		c.Pipeline.MaxCreativeAttempts = 3
	}
	if c.Analysis.LowCTRThreshold == 0 {
		c.Analysis.LowCTRThreshold = 2.0
	}
	if c.Analysis.HighROASThreshold == 0 {
		c.Analysis.HighROASThreshold = 4.0
	}
	if c.Analysis.PauseCTRThreshold == 0 {
		c.Analysis.PauseCTRThreshold = 1.0
	}
}

// Mode resolves live vs demo. Live requires the full Meta credential bundle;
// everything else is demo.
func (c *Config) Mode() Mode {
	if c.Meta.Configured() {
		return ModeLive
	}
	return ModeDemo
}
