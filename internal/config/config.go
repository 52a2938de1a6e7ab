// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvLLMAPIKey    = "LLM_API_KEY"
	EnvLLMBaseURL   = "LLM_BASE_URL"
	EnvLLMModel     = "LLM_MODEL"
	EnvLLMProvider  = "LLM_PROVIDER"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvGoogleCSEID  = "GOOGLE_CSE_ID"
	EnvLogLevel     = "LOG_LEVEL"
)

// Config represents the agent configuration that can be loaded from a JSON or YAML file.
// Missing values are filled from Default by MergeWithDefaults.
type Config struct {
	DataDir   string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	Search   SearchConfig   `json:"search" yaml:"search"`
	Crawler  CrawlerConfig  `json:"crawler" yaml:"crawler"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Filter   FilterConfig   `json:"filter" yaml:"filter"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// SearchConfig configures the query aggregator and its provider.
type SearchConfig struct {
	Method        string  `json:"method,omitempty" yaml:"method,omitempty" validate:"omitempty,oneof=google baidu"`
	MaxResults    int     `json:"max_results,omitempty" yaml:"max_results,omitempty" validate:"gte=0,lte=100"`
	SleepInterval float64 `json:"sleep_interval,omitempty" yaml:"sleep_interval,omitempty" validate:"gte=0"` // seconds
	GoogleAPIKey  string  `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty"`
	GoogleCSEID   string  `json:"google_cse_id,omitempty" yaml:"google_cse_id,omitempty"`
	BaiduEndpoint string  `json:"baidu_endpoint,omitempty" yaml:"baidu_endpoint,omitempty" validate:"omitempty,url"`
}

// CrawlerConfig configures page fetching.
type CrawlerConfig struct {
	MaxConcurrency  int    `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty" validate:"gte=0,lte=64"`
	Timeout         int    `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"` // seconds
	UserAgent       string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	UseBrowser      bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes,omitempty" yaml:"cache_ttl_minutes,omitempty" validate:"gte=0"`
}

// LLMConfig configures the oracle.
type LLMConfig struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=openai gemini"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	TopP        float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" validate:"gte=0,lte=1"`
	Timeout     int     `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"` // seconds
}

// DefaultMinScore applies when filter.min_score is not set.
const DefaultMinScore = 3

// FilterConfig configures relevance filtering. MinScore is a pointer so that an
// explicit 0 (keep hits the oracle never scored) survives MergeWithDefaults.
type FilterConfig struct {
	TopN     int  `json:"top_n,omitempty" yaml:"top_n,omitempty" validate:"gte=0"`
	MinScore *int `json:"min_score,omitempty" yaml:"min_score,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// AnalysisConfig configures a run.
type AnalysisConfig struct {
	RiskProfile        string `json:"risk_profile,omitempty" yaml:"risk_profile,omitempty" validate:"omitempty,oneof=low medium high"`
	MaxURLs            int    `json:"max_urls,omitempty" yaml:"max_urls,omitempty" validate:"gte=0"`
	ExtractConcurrency int    `json:"extract_concurrency,omitempty" yaml:"extract_concurrency,omitempty" validate:"gte=0,lte=16"`
	SaveSnapshots      *bool  `json:"save_snapshots,omitempty" yaml:"save_snapshots,omitempty"`
	SaveHistory        *bool  `json:"save_history,omitempty" yaml:"save_history,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	saveSnapshots := true
	saveHistory := true
	minScore := DefaultMinScore
	return Config{
		DataDir:   "data",
		OutputDir: "results",
		Search: SearchConfig{
			Method:        "google",
			MaxResults:    15,
			SleepInterval: 2.0,
			BaiduEndpoint: "https://www.baidu.com/s",
		},
		Crawler: CrawlerConfig{
			MaxConcurrency:  5,
			Timeout:         30,
			CacheTTLMinutes: 30,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			MaxTokens:   4096,
			Temperature: 0.7,
			TopP:        0.95,
			Timeout:     120,
		},
		Filter: FilterConfig{
			TopN:     10,
			MinScore: &minScore,
		},
		Analysis: AnalysisConfig{
			RiskProfile:        "low",
			MaxURLs:            20,
			ExtractConcurrency: 1,
			SaveSnapshots:      &saveSnapshots,
			SaveHistory:        &saveHistory,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join("data", "stock_agent.log"),
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load reads path when given, fills defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	merged := cfg.MergeWithDefaults(Default())
	merged.ApplyEnv(os.Getenv)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("config error: invalid fields: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and provider settings from the environment.
// getenv is os.Getenv in production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.LLM.Provider, EnvLLMProvider)
	set(&c.LLM.BaseURL, EnvLLMBaseURL)
	set(&c.LLM.Model, EnvLLMModel)
	set(&c.Search.GoogleAPIKey, EnvGoogleAPIKey)
	set(&c.Search.GoogleCSEID, EnvGoogleCSEID)
	set(&c.Log.Level, EnvLogLevel)

	if strings.EqualFold(c.LLM.Provider, "gemini") {
		set(&c.LLM.APIKey, EnvGeminiAPIKey)
	}
	set(&c.LLM.APIKey, EnvLLMAPIKey)
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	str := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	num := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	str(&result.DataDir, defaults.DataDir)
	str(&result.OutputDir, defaults.OutputDir)

	str(&result.Search.Method, defaults.Search.Method)
	num(&result.Search.MaxResults, defaults.Search.MaxResults)
	if result.Search.SleepInterval == 0 {
		result.Search.SleepInterval = defaults.Search.SleepInterval
	}
	str(&result.Search.GoogleAPIKey, defaults.Search.GoogleAPIKey)
	str(&result.Search.GoogleCSEID, defaults.Search.GoogleCSEID)
	str(&result.Search.BaiduEndpoint, defaults.Search.BaiduEndpoint)

	num(&result.Crawler.MaxConcurrency, defaults.Crawler.MaxConcurrency)
	num(&result.Crawler.Timeout, defaults.Crawler.Timeout)
	str(&result.Crawler.UserAgent, defaults.Crawler.UserAgent)
	num(&result.Crawler.CacheTTLMinutes, defaults.Crawler.CacheTTLMinutes)

	str(&result.LLM.Provider, defaults.LLM.Provider)
	str(&result.LLM.APIKey, defaults.LLM.APIKey)
	str(&result.LLM.BaseURL, defaults.LLM.BaseURL)
	str(&result.LLM.Model, defaults.LLM.Model)
	num(&result.LLM.MaxTokens, defaults.LLM.MaxTokens)
	num(&result.LLM.Timeout, defaults.LLM.Timeout)
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.TopP == 0 {
		result.LLM.TopP = defaults.LLM.TopP
	}

	num(&result.Filter.TopN, defaults.Filter.TopN)
	if result.Filter.MinScore == nil {
		result.Filter.MinScore = defaults.Filter.MinScore
	}

	str(&result.Analysis.RiskProfile, defaults.Analysis.RiskProfile)
	num(&result.Analysis.MaxURLs, defaults.Analysis.MaxURLs)
	num(&result.Analysis.ExtractConcurrency, defaults.Analysis.ExtractConcurrency)
	if result.Analysis.SaveSnapshots == nil {
		result.Analysis.SaveSnapshots = defaults.Analysis.SaveSnapshots
	}
	if result.Analysis.SaveHistory == nil {
		result.Analysis.SaveHistory = defaults.Analysis.SaveHistory
	}

	str(&result.Log.Level, defaults.Log.Level)
	str(&result.Log.File, defaults.Log.File)

	// Bool fields other than SaveSnapshots and SaveHistory cannot distinguish unset from false,
	// so CLI flags always win for them. The same holds for other numeric zeros.
	return result
}

// SleepDuration is the search interval as a duration.
func (s SearchConfig) SleepDuration() time.Duration {
	return time.Duration(s.SleepInterval * float64(time.Second))
}

// TimeoutDuration is the per-fetch timeout.
func (c CrawlerConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CacheTTL is how long fetched pages are reused.
func (c CrawlerConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// TimeoutDuration is the per-call oracle timeout.
func (l LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// MinScoreValue is the effective threshold; unset means DefaultMinScore.
func (f FilterConfig) MinScoreValue() int {
	if f.MinScore == nil {
		return DefaultMinScore
	}
	return *f.MinScore
}

// SnapshotsEnabled reports whether fetch snapshots are written.
func (a AnalysisConfig) SnapshotsEnabled() bool {
	return a.SaveSnapshots == nil || *a.SaveSnapshots
}

// HistoryEnabled reports whether runs are recorded under <data_dir>/runs.
func (a AnalysisConfig) HistoryEnabled() bool {
	return a.SaveHistory == nil || *a.SaveHistory
}

// HistoryDir is where run records are kept.
func (c Config) HistoryDir() string {
	return filepath.Join(c.DataDir, "runs")
}

// Redacted returns a copy safe to print, with secrets masked.
func (c Config) Redacted() Config {
	out := c
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Search.GoogleAPIKey = mask(c.Search.GoogleAPIKey)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
