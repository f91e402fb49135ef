package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig             `mapstructure:"server" json:"server" yaml:"server"`
	Database  DatabaseConfig           `mapstructure:"database" json:"database" yaml:"database"`
	Logging   LoggingConfig            `mapstructure:"logging" json:"logging" yaml:"logging"`
	LLM       LLMConfig                `mapstructure:"llm" json:"llm" yaml:"llm"`
	Services  map[string]ServiceConfig `mapstructure:"services" json:"services" yaml:"services"`
	Resolver  ResolverConfig           `mapstructure:"resolver" json:"resolver" yaml:"resolver"`
	Pipeline  PipelineConfig           `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	History   HistoryConfig            `mapstructure:"history" json:"history" yaml:"history"`
	Scheduler SchedulerConfig          `mapstructure:"scheduler" json:"scheduler" yaml:"scheduler"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level"`
	Format     string `mapstructure:"format" json:"format" yaml:"format"`
	Path       string `mapstructure:"path" json:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
	BufferSize int    `mapstructure:"buffer_size" json:"buffer_size" yaml:"buffer_size"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider  string         `mapstructure:"provider" json:"provider" yaml:"provider"`
	Ollama    ProviderConfig `mapstructure:"ollama" json:"ollama" yaml:"ollama"`
	OpenAI    ProviderConfig `mapstructure:"openai" json:"openai" yaml:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic" json:"anthropic" yaml:"anthropic"`
	Gemini    ProviderConfig `mapstructure:"gemini" json:"gemini" yaml:"gemini"`
}

// ProviderConfig holds the settings of one language model provider.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" json:"model" yaml:"model"`
}

// Active returns the configuration of the selected provider.
func (c LLMConfig) Active() ProviderConfig {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderAnthropic:
		return c.Anthropic
	case ProviderGemini:
		return c.Gemini
	default:
		return c.Ollama
	}
}

// Language model providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ServiceConfig configures one backend service. The map key in Config.Services
// is the service name; Kind defaults to the name when empty.
type ServiceConfig struct {
	Kind           string        `mapstructure:"kind" json:"kind" yaml:"kind"`
	URL            string        `mapstructure:"url" json:"url" yaml:"url"`
	APIKey         string        `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	QualityProfile string        `mapstructure:"quality_profile" json:"quality_profile" yaml:"quality_profile"`
	RootFolder     string        `mapstructure:"root_folder" json:"root_folder" yaml:"root_folder"`
	MediaTypes     []string      `mapstructure:"media_types" json:"media_types" yaml:"media_types"`
	Disabled       bool          `mapstructure:"disabled" json:"disabled" yaml:"disabled"`
}

// ResolverConfig holds title matching thresholds.
type ResolverConfig struct {
	MinSimilarity  float64 `mapstructure:"min_similarity" json:"min_similarity" yaml:"min_similarity"`
	HighConfidence float64 `mapstructure:"high_confidence" json:"high_confidence" yaml:"high_confidence"`
	MaxCandidates  int     `mapstructure:"max_candidates" json:"max_candidates" yaml:"max_candidates"`
}

// PipelineConfig holds per-stage timeouts.
type PipelineConfig struct {
	LLMTimeout     time.Duration `mapstructure:"llm_timeout" json:"llm_timeout" yaml:"llm_timeout"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout" json:"backend_timeout" yaml:"backend_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" json:"command_timeout" yaml:"command_timeout"`
}

// HistoryConfig controls the command history store.
type HistoryConfig struct {
	Enabled       bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	RetentionDays int  `mapstructure:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// SchedulerConfig controls background tasks.
type SchedulerConfig struct {
	HealthInterval    time.Duration `mapstructure:"health_interval" json:"health_interval" yaml:"health_interval"`
	RetentionInterval time.Duration `mapstructure:"retention_interval" json:"retention_interval" yaml:"retention_interval"`
}

// KnownServiceKinds lists the service names that can be configured from the
// environment alone (SONARR_URL, SONARR_API_KEY, ...).
var KnownServiceKinds = []string{
	"sonarr", "radarr", "lidarr", "readarr", "whisparr", "audiobookshelf", "bazarr",
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8484,
		},
		Database: DatabaseConfig{
			Path: "./data/arrmate.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
			BufferSize: 1000,
		},
		LLM: LLMConfig{
			Provider:  ProviderOllama,
			Ollama:    ProviderConfig{BaseURL: "http://localhost:11434", Model: "llama3.1:latest"},
			OpenAI:    ProviderConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Anthropic: ProviderConfig{BaseURL: "https://api.anthropic.com", Model: "claude-3-5-haiku-latest"},
			Gemini:    ProviderConfig{Model: "gemini-2.0-flash"},
		},
		Services: map[string]ServiceConfig{},
		Resolver: ResolverConfig{
			MinSimilarity:  0.6,
			HighConfidence: 0.92,
			MaxCandidates:  10,
		},
		Pipeline: PipelineConfig{
			LLMTimeout:     60 * time.Second,
			BackendTimeout: 30 * time.Second,
			CommandTimeout: 3 * time.Minute,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Scheduler: SchedulerConfig{
			HealthInterval:    5 * time.Minute,
			RetentionInterval: 24 * time.Hour,
		},
	}
}

// Load reads configuration from .env, the config file and environment
// variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.arrmate")
	}

	// Environment variable settings
	v.SetEnvPrefix("ARRMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindServiceEnv(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.normalizeServices()

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	// Database defaults
	v.SetDefault("database.path", d.Database.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("logging.buffer_size", d.Logging.BufferSize)

	// LLM defaults
	v.SetDefault("llm.provider", d.LLM.Provider)
	for name, p := range map[string]ProviderConfig{
		ProviderOllama:    d.LLM.Ollama,
		ProviderOpenAI:    d.LLM.OpenAI,
		ProviderAnthropic: d.LLM.Anthropic,
		ProviderGemini:    d.LLM.Gemini,
	} {
		v.SetDefault("llm."+name+".base_url", p.BaseURL)
		v.SetDefault("llm."+name+".api_key", "")
		v.SetDefault("llm."+name+".model", p.Model)
	}

	// Resolver defaults
	v.SetDefault("resolver.min_similarity", d.Resolver.MinSimilarity)
	v.SetDefault("resolver.high_confidence", d.Resolver.HighConfidence)
	v.SetDefault("resolver.max_candidates", d.Resolver.MaxCandidates)

	// Pipeline defaults
	v.SetDefault("pipeline.llm_timeout", d.Pipeline.LLMTimeout)
	v.SetDefault("pipeline.backend_timeout", d.Pipeline.BackendTimeout)
	v.SetDefault("pipeline.command_timeout", d.Pipeline.CommandTimeout)

	// History defaults
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.retention_days", d.History.RetentionDays)

	// Scheduler defaults
	v.SetDefault("scheduler.health_interval", d.Scheduler.HealthInterval)
	v.SetDefault("scheduler.retention_interval", d.Scheduler.RetentionInterval)
}

// bindServiceEnv lets well-known services be configured with the plain
// variables used by most *arr tooling (SONARR_URL, SONARR_API_KEY) as well as
// the prefixed form (ARRMATE_SERVICES_SONARR_URL). Provider keys get the same
// treatment (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY).
func bindServiceEnv(v *viper.Viper) {
	for _, kind := range KnownServiceKinds {
		upper := strings.ToUpper(kind)
		_ = v.BindEnv("services."+kind+".url", "ARRMATE_SERVICES_"+upper+"_URL", upper+"_URL")
		_ = v.BindEnv("services."+kind+".api_key", "ARRMATE_SERVICES_"+upper+"_API_KEY", upper+"_API_KEY")
	}
	_ = v.BindEnv("llm.provider", "ARRMATE_LLM_PROVIDER", "LLM_PROVIDER")
	_ = v.BindEnv("llm.ollama.base_url", "ARRMATE_LLM_OLLAMA_BASE_URL", "OLLAMA_BASE_URL")
	_ = v.BindEnv("llm.openai.api_key", "ARRMATE_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.anthropic.api_key", "ARRMATE_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.gemini.api_key", "ARRMATE_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
}

// normalizeServices drops entries without a URL (env bindings for services
// that are not configured) and fills in the kind from the name.
func (c *Config) normalizeServices() {
	if c.Services == nil {
		c.Services = map[string]ServiceConfig{}
	}
	for name, svc := range c.Services {
		if strings.TrimSpace(svc.URL) == "" && svc.Kind != "mock" {
			delete(c.Services, name)
			continue
		}
		if svc.Kind == "" {
			svc.Kind = name
		}
		svc.Kind = strings.ToLower(svc.Kind)
		c.Services[name] = svc
	}
}

// ServiceNames returns the configured service names in sorted order.
func (c *Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
