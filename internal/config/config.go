package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	Matching    MatchingConfig    `yaml:"matching" mapstructure:"matching"`
	Attachments AttachmentsConfig `yaml:"attachments" mapstructure:"attachments"`
	SMTP        SMTPConfig        `yaml:"smtp" mapstructure:"smtp"`
	WhatsApp    WhatsAppConfig    `yaml:"whatsapp" mapstructure:"whatsapp"`
	Notify      NotifyConfig      `yaml:"notify" mapstructure:"notify"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Backup      BackupConfig      `yaml:"backup" mapstructure:"backup"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectRetries bounds startup connection attempts.
	ConnectRetries int `yaml:"connect_retries" mapstructure:"connect_retries"`
}

// LLMConfig configures the completion calls of the extraction pipeline.
type LLMConfig struct {
	Provider            string  `yaml:"provider" mapstructure:"provider"`
	ClassifierModel     string  `yaml:"classifier_model" mapstructure:"classifier_model"`
	ExtractorModel      string  `yaml:"extractor_model" mapstructure:"extractor_model"`
	ClassifierMaxTokens int     `yaml:"classifier_max_tokens" mapstructure:"classifier_max_tokens"`
	ExtractorMaxTokens  int     `yaml:"extractor_max_tokens" mapstructure:"extractor_max_tokens"`
	Temperature         float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ReorderContextChars int     `yaml:"reorder_context_chars" mapstructure:"reorder_context_chars"`
	ExtractContextChars int     `yaml:"extract_context_chars" mapstructure:"extract_context_chars"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// MatchingConfig tunes client matching and history fill.
type MatchingConfig struct {
	Threshold              float64 `yaml:"threshold" mapstructure:"threshold"`
	SubstringBonus         float64 `yaml:"substring_bonus" mapstructure:"substring_bonus"`
	SubstringMinLen        int     `yaml:"substring_min_len" mapstructure:"substring_min_len"`
	HistoryConfidenceFloor int     `yaml:"history_confidence_floor" mapstructure:"history_confidence_floor"`
}

// AttachmentsConfig configures attachment text extraction.
type AttachmentsConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
	MistralURL    string `yaml:"mistral_url" mapstructure:"mistral_url"`
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// WhatsAppConfig holds Twilio WhatsApp settings.
type WhatsAppConfig struct {
	AccountSID string  `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken  string  `yaml:"auth_token" mapstructure:"auth_token"`
	From       string  `yaml:"from" mapstructure:"from"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// NotifyConfig configures acknowledgements to senders.
type NotifyConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	CompanyName string `yaml:"company_name" mapstructure:"company_name"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentMessages int `yaml:"max_concurrent_messages" mapstructure:"max_concurrent_messages"`
}

// BackupConfig configures SQLite backups.
type BackupConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Keep     int    `yaml:"keep" mapstructure:"keep"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ORDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "orders.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.connect_retries", 3)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.classifier_model", "claude-haiku-4-5")
	v.SetDefault("llm.extractor_model", "claude-haiku-4-5")
	v.SetDefault("llm.classifier_max_tokens", 300)
	v.SetDefault("llm.extractor_max_tokens", 2000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.reorder_context_chars", 1500)
	v.SetDefault("llm.extract_context_chars", 12000)
	v.SetDefault("matching.threshold", 0.3)
	v.SetDefault("matching.substring_bonus", 0.3)
	v.SetDefault("matching.substring_min_len", 3)
	v.SetDefault("matching.history_confidence_floor", 85)
	v.SetDefault("attachments.provider", "local")
	v.SetDefault("attachments.pdftotext_path", "pdftotext")
	v.SetDefault("attachments.mistral_model", "mistral-ocr-latest")
	v.SetDefault("attachments.mistral_url", "https://api.mistral.ai")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("whatsapp.base_url", "https://api.twilio.com")
	v.SetDefault("whatsapp.rate_per_sec", 1.0)
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.company_name", "Service Commandes")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_messages", 5)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.keep", 30)
	v.SetDefault("backup.compress", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Secrets have no default but must still be visible to AutomaticEnv.
	for _, key := range []string{
		"store.database_url",
		"anthropic.key", "anthropic.base_url",
		"gemini.key", "gemini.base_url",
		"attachments.mistral_api_key",
		"smtp.host", "smtp.username", "smtp.password", "smtp.from",
		"whatsapp.account_sid", "whatsapp.auth_token", "whatsapp.from",
	} {
		v.SetDefault(key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "extract"
// (completion service only), "intake" (extract + store), "serve" (intake +
// HTTP port) and "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store":
		errs = append(errs, c.validateStore()...)
	case "extract":
		errs = append(errs, c.validateLLM()...)
	case "intake":
		errs = append(errs, c.validateLLM()...)
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateLLM()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.MaxConcurrentMessages < 1 || c.Batch.MaxConcurrentMessages > 50 {
		errs = append(errs, "batch.max_concurrent_messages must be between 1 and 50")
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		errs = append(errs, "matching.threshold must be between 0 and 1")
	}
	if c.Matching.HistoryConfidenceFloor < 0 || c.Matching.HistoryConfidenceFloor > 100 {
		errs = append(errs, "matching.history_confidence_floor must be between 0 and 100")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for sqlite"}
		}
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	return nil
}

func (c *Config) validateLLM() []string {
	switch c.LLM.Provider {
	case "", "anthropic":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required"}
		}
	case "gemini":
		if c.Gemini.Key == "" {
			return []string{"gemini.key is required"}
		}
	default:
		return []string{"llm.provider must be anthropic or gemini"}
	}
	return nil
}

// APIKey returns the key of the configured completion provider.
func (c *Config) APIKey() string {
	if c.LLM.Provider == "gemini" {
		return c.Gemini.Key
	}
	return c.Anthropic.Key
}

// ProviderBaseURL returns the base URL override of the configured provider.
func (c *Config) ProviderBaseURL() string {
	if c.LLM.Provider == "gemini" {
		return c.Gemini.BaseURL
	}
	return c.Anthropic.BaseURL
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
