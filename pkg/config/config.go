// Package config provides configuration loading, validation, and management for planbuilder.
//
// A single global Config is loaded from <projectDir>/.planbuilder/config.json and
// guarded by a mutex. GetConfig returns it by value. On first run the file is
// created with defaults. Every key can be overridden by an environment variable
// named PLANBUILDER_<SECTION>_<KEY>, e.g. PLANBUILDER_LLM_MODEL or
// PLANBUILDER_RETRIEVAL_MAX_CONCURRENCY.
//
//	err := config.LoadConfig(projectDir)
//	cfg, err := config.GetConfig()
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"planbuilder/pkg/logx"
)

const (
	// SchemaVersion is bumped whenever the file layout changes.
	SchemaVersion = "1.0"

	// ProjectConfigDir holds config and secrets relative to the project directory.
	ProjectConfigDir = ".planbuilder"
	// ProjectConfigFilename is the config file inside ProjectConfigDir.
	ProjectConfigFilename = "config.json"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "PLANBUILDER"
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Secret names.
const (
	EnvSambaNovaAPIKey = "SAMBANOVA_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvTrelloAPIKey    = "TRELLO_API_KEY"
	EnvTrelloToken     = "TRELLO_TOKEN"
)

//nolint:gochecknoglobals // intentional singleton
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// LogInfo logs an info message using the config logger.
func LogInfo(format string, args ...any) {
	getLogger().Info(format, args...)
}

// LLMConfig selects and tunes the generation service.
type LLMConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"`
	Model       string  `json:"model" mapstructure:"model"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `json:"temperature" mapstructure:"temperature"`
	TopP        float32 `json:"top_p" mapstructure:"top_p"`
	// Schedule generation samples more narrowly so the envelope stays parseable.
	ScheduleTemperature float32 `json:"schedule_temperature" mapstructure:"schedule_temperature"`
	ScheduleTopP        float32 `json:"schedule_top_p" mapstructure:"schedule_top_p"`
}

// RetryConfig configures transport-level retries of generation calls.
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" mapstructure:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" mapstructure:"backoff_factor"`
	Jitter        bool          `json:"jitter" mapstructure:"jitter"`
}

// ResilienceConfig groups resilience settings for the generation service.
type ResilienceConfig struct {
	Retry RetryConfig `json:"retry" mapstructure:"retry"`
}

// ChartConfig configures the generate-parse-render loop for schedules.
type ChartConfig struct {
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
}

// SelectorConfig holds the CSS selectors used on the salary source.
type SelectorConfig struct {
	SearchLink     string `json:"search_link" mapstructure:"search_link"`
	DetailValue    string `json:"detail_value" mapstructure:"detail_value"`
	DetailFallback string `json:"detail_fallback" mapstructure:"detail_fallback"`
}

// RetrievalConfig configures the salary lookup workers and their shared request pool.
type RetrievalConfig struct {
	// SearchURL contains a {keyword} placeholder for the query-escaped role.
	SearchURL         string         `json:"search_url" mapstructure:"search_url"`
	MaxConcurrency    int            `json:"max_concurrency" mapstructure:"max_concurrency"`
	MaxPerDomain      int            `json:"max_per_domain" mapstructure:"max_per_domain"`
	RequestDelay      time.Duration  `json:"request_delay" mapstructure:"request_delay"`
	RequestTimeout    time.Duration  `json:"request_timeout" mapstructure:"request_timeout"`
	MaxSearchAttempts int            `json:"max_search_attempts" mapstructure:"max_search_attempts"`
	CollectTimeout    time.Duration  `json:"collect_timeout" mapstructure:"collect_timeout"`
	UserAgents        []string       `json:"user_agents" mapstructure:"user_agents"`
	Selectors         SelectorConfig `json:"selectors" mapstructure:"selectors"`
}

// BoardConfig configures the Trello board service.
type BoardConfig struct {
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	WebURL   string        `json:"web_url" mapstructure:"web_url"`
	ListName string        `json:"list_name" mapstructure:"list_name"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
}

// DebugConfig mirrors the logx debug switches.
type DebugConfig struct {
	Enabled     bool     `json:"enabled" mapstructure:"enabled"`
	FileLogging bool     `json:"file_logging" mapstructure:"file_logging"`
	LogDir      string   `json:"log_dir" mapstructure:"log_dir"`
	Domains     []string `json:"domains" mapstructure:"domains"`
}

// Config is the complete planbuilder configuration.
type Config struct {
	SchemaVersion string            `json:"schema_version" mapstructure:"schema_version"`
	LLM           *LLMConfig        `json:"llm" mapstructure:"llm"`
	Resilience    *ResilienceConfig `json:"resilience" mapstructure:"resilience"`
	Chart         *ChartConfig      `json:"chart" mapstructure:"chart"`
	Retrieval     *RetrievalConfig  `json:"retrieval" mapstructure:"retrieval"`
	Board         *BoardConfig      `json:"board" mapstructure:"board"`
	Metrics       *MetricsConfig    `json:"metrics" mapstructure:"metrics"`
	Debug         *DebugConfig      `json:"debug" mapstructure:"debug"`
}

// DefaultUserAgents is the pool request headers are drawn from.
//
//nolint:gochecknoglobals // static defaults
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Edge/91.0.864.59",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
}

// GetProjectDir returns the directory passed to LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// GetConfig returns the current global config BY VALUE.
// Must call LoadConfig first to initialize the global config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return *config, nil
}

// SetConfigForTesting sets the global config for testing purposes. Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg != nil {
		applyDefaults(cfg)
	}
	config = cfg
	if cfg == nil {
		projectDir = ""
	}
}

// LoadConfig loads <projectDir>/.planbuilder/config.json into the global singleton.
//
// Behavior:
//   - Missing file: creates a config with defaults and saves it
//   - Existing file: loads it, applies env overrides and defaults, and validates; the file is not rewritten
//   - Unparseable file: returns an error to avoid overwriting user changes
func LoadConfig(inputProjectDir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = inputProjectDir
	configPath := filepath.Join(projectDir, ProjectConfigDir, ProjectConfigFilename)

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		getLogger().Info("Config file not found, creating new config at %s", configPath)
		if err := writeConfig(configPath, createDefaultConfig()); err != nil {
			return fmt.Errorf("failed to save initial config: %w", err)
		}
	}

	getLogger().Info("Loading config from %s", configPath)
	loaded, err := loadConfigFromFile(configPath)
	if err != nil {
		return fmt.Errorf("fatal: config file exists but cannot be parsed (to avoid overwriting your changes): %w", err)
	}

	applyDefaults(loaded)
	if err := validateConfig(loaded); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config = loaded

	applyDebug(config.Debug)
	return nil
}

// loadConfigFromFile reads the file through viper so environment overrides apply.
func loadConfigFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", configPath, err)
	}
	return &cfg, nil
}

// SaveConfig saves config to <projectDir>/.planbuilder/config.json.
func SaveConfig(cfg *Config, dir string) error {
	return writeConfig(filepath.Join(dir, ProjectConfigDir, ProjectConfigFilename), cfg)
}

func writeConfig(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// createDefaultConfig creates a new config with sensible defaults.
func createDefaultConfig() *Config {
	cfg := &Config{SchemaVersion: SchemaVersion}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every unset field.
//
//nolint:cyclop,gocognit // flat list of defaults
func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaVersion
	}

	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Provider == ProviderOpenAI && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.sambanova.ai/v1"
	}
	if cfg.LLM.Model == "" && cfg.LLM.Provider == ProviderOpenAI {
		cfg.LLM.Model = "Meta-Llama-3.1-70B-Instruct"
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 1.0
	}
	if cfg.LLM.ScheduleTemperature == 0 {
		cfg.LLM.ScheduleTemperature = 0.2
	}
	if cfg.LLM.ScheduleTopP == 0 {
		cfg.LLM.ScheduleTopP = 0.9
	}

	if cfg.Resilience == nil {
		cfg.Resilience = &ResilienceConfig{}
	}
	if cfg.Resilience.Retry.MaxAttempts <= 0 {
		cfg.Resilience.Retry = RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			Jitter:        true,
		}
	}

	if cfg.Chart == nil {
		cfg.Chart = &ChartConfig{}
	}
	if cfg.Chart.MaxAttempts <= 0 {
		cfg.Chart.MaxAttempts = 4
	}

	if cfg.Retrieval == nil {
		cfg.Retrieval = &RetrievalConfig{}
	}
	r := cfg.Retrieval
	if r.SearchURL == "" {
		r.SearchURL = "https://www.salary.com/tools/salary-calculator/search?keyword={keyword}&location="
	}
	if r.MaxConcurrency <= 0 {
		r.MaxConcurrency = 5
	}
	if r.MaxPerDomain <= 0 {
		r.MaxPerDomain = 5
	}
	if r.RequestDelay == 0 {
		r.RequestDelay = 250 * time.Millisecond
	}
	if r.RequestTimeout <= 0 {
		r.RequestTimeout = 60 * time.Second
	}
	if r.MaxSearchAttempts <= 0 {
		r.MaxSearchAttempts = 5
	}
	if r.CollectTimeout <= 0 {
		r.CollectTimeout = 5 * time.Minute
	}
	if len(r.UserAgents) == 0 {
		r.UserAgents = append([]string(nil), DefaultUserAgents...)
	}
	if r.Selectors.SearchLink == "" {
		r.Selectors.SearchLink = `div.margin-bottom10.font-semibold.sal-jobtitle > a`
	}
	if r.Selectors.DetailValue == "" {
		r.Selectors.DetailValue = `text#top_salary_value > tspan`
	}
	if r.Selectors.DetailFallback == "" {
		r.Selectors.DetailFallback = `div[class*="salary-value"]`
	}

	if cfg.Board == nil {
		cfg.Board = &BoardConfig{}
	}
	if cfg.Board.BaseURL == "" {
		cfg.Board.BaseURL = "https://api.trello.com/1"
	}
	if cfg.Board.WebURL == "" {
		cfg.Board.WebURL = "https://trello.com/b/"
	}
	if cfg.Board.ListName == "" {
		cfg.Board.ListName = "To Do"
	}
	if cfg.Board.Timeout <= 0 {
		cfg.Board.Timeout = 30 * time.Second
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = "127.0.0.1:9464"
	}

	if cfg.Debug == nil {
		cfg.Debug = &DebugConfig{}
	}
}

// validateConfig rejects configurations the workflow cannot run with.
func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama:
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if cfg.LLM.TopP < 0 || cfg.LLM.TopP > 1 || cfg.LLM.ScheduleTopP < 0 || cfg.LLM.ScheduleTopP > 1 {
		return fmt.Errorf("llm top_p values must be between 0.0 and 1.0")
	}
	if !strings.Contains(cfg.Retrieval.SearchURL, "{keyword}") {
		return fmt.Errorf("retrieval.search_url must contain a {keyword} placeholder")
	}
	if cfg.Retrieval.RequestDelay < 0 {
		return fmt.Errorf("retrieval.request_delay must not be negative")
	}
	if cfg.Retrieval.MaxPerDomain > cfg.Retrieval.MaxConcurrency {
		return fmt.Errorf("retrieval.max_per_domain (%d) cannot exceed max_concurrency (%d)",
			cfg.Retrieval.MaxPerDomain, cfg.Retrieval.MaxConcurrency)
	}
	return nil
}

func applyDebug(d *DebugConfig) {
	if d == nil || !d.Enabled {
		return
	}
	logx.SetDebugConfig(true, d.FileLogging, d.LogDir)
	logx.SetDebugDomains(d.Domains)
}

// GetAPIKey returns the credential for a provider.
// Checks the secrets file first, then environment variables.
// For Ollama, returns the host URL instead of an API key.
func GetAPIKey(provider string) (string, error) {
	var names []string
	switch provider {
	case ProviderOpenAI:
		names = []string{EnvSambaNovaAPIKey, EnvOpenAIAPIKey}
	case ProviderAnthropic:
		names = []string{EnvAnthropicAPIKey}
	case ProviderGoogle:
		names = []string{EnvGoogleAPIKey}
	case ProviderOllama:
		if host, err := GetSecret(EnvOllamaHost); err == nil {
			return host, nil
		}
		return "http://localhost:11434", nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	for _, name := range names {
		if key, err := GetSecret(name); err == nil && key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", strings.Join(names, " or "))
}

// GetTrelloCredentials returns the Trello API key and token.
func GetTrelloCredentials() (key, token string, err error) {
	key, err = GetSecret(EnvTrelloAPIKey)
	if err != nil {
		return "", "", err
	}
	token, err = GetSecret(EnvTrelloToken)
	if err != nil {
		return "", "", err
	}
	return key, token, nil
}
