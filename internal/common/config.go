package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Paths         PathsConfig         `toml:"paths"`
	Logging       LoggingConfig       `toml:"logging"`
	Scraper       ScraperConfig       `toml:"scraper"`
	Keywords      KeywordsConfig      `toml:"keywords"`
	Scoring       ScoringConfig       `toml:"scoring"`
	LLM           LLMConfig           `toml:"llm"`
	Notifications NotificationsConfig `toml:"notifications"`
	Telegram      TelegramConfig      `toml:"telegram"`
	SMTP          SMTPConfig          `toml:"smtp"`
}

// PathsConfig contains filesystem layout roots
type PathsConfig struct {
	DataDir       string `toml:"data_dir"`        // Root for raw archive, checkpoints and database
	OutputDir     string `toml:"output_dir"`      // Root for generated resumes
	SiteConfigs   string `toml:"site_configs"`    // Directory of per-site config files
	MasterResume  string `toml:"master_resume"`   // Master resume document (TOML or YAML)
	DatabaseFile  string `toml:"database_file"`   // SQLite database path (default: <data_dir>/jobhunter.db)
	CheckpointDir string `toml:"checkpoint_dir"`  // Checkpoint directory (default: <data_dir>/checkpoints)
	RawArchiveDir string `toml:"raw_archive_dir"` // Raw scrape archive (default: <data_dir>/raw)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScraperConfig controls the site scraper engine
type ScraperConfig struct {
	MaxWorkers     int           `toml:"max_workers" validate:"min=1"` // Upper bound on concurrent sites
	RequestTimeout time.Duration `toml:"request_timeout"`
	UserAgent      string        `toml:"user_agent"`
	RequestDelay   time.Duration `toml:"request_delay"` // Minimum delay between requests to one site
	BrowserWait    time.Duration `toml:"browser_wait"`  // Extra settle time after wait-for-selector
}

// KeywordsConfig holds the global keyword filter lists. Per-site lists are
// merged in (or replace these, when the site sets override).
type KeywordsConfig struct {
	MustHaveAny      []string `toml:"must_have_any"`
	MustNotHave      []string `toml:"must_not_have"`
	TitleMustHaveAny []string `toml:"title_must_have_any"`
}

// ScoringConfig holds LLM scoring weights and limits
type ScoringConfig struct {
	Threshold  int                `toml:"threshold" validate:"min=0,max=100"` // Minimum score for resume tailoring
	Weights    map[string]float64 `toml:"weights"`                            // Named weight breakdown embedded in the prompt
	CharBudget int                `toml:"char_budget"`                        // Job text truncation budget (default 8000)
}

// LLMProviderConfig describes one OpenAI-compatible endpoint in the fallback chain
type LLMProviderConfig struct {
	Name    string `toml:"name" validate:"required"`
	BaseURL string `toml:"base_url" validate:"required,url"`
	Model   string `toml:"model" validate:"required"`
	APIKey  string `toml:"api_key"` // Usually injected from environment
}

// LLMConfig configures the fallback-chain model client
type LLMConfig struct {
	Primary        LLMProviderConfig `toml:"primary"`
	Fallback       LLMProviderConfig `toml:"fallback"`
	RequestTimeout time.Duration     `toml:"request_timeout"`
	MaxJSONRetries int               `toml:"max_json_retries"`
}

// NotificationsConfig holds the three routing thresholds
type NotificationsConfig struct {
	InstantThreshold int `toml:"instant_threshold" validate:"min=0,max=100"`
	DigestThreshold  int `toml:"digest_threshold" validate:"min=0,max=100"`
	LogThreshold     int `toml:"log_threshold" validate:"min=0,max=100"`
}

// TelegramConfig holds chat bot settings. Token and chat ID come from the
// environment; when either is missing, notifications become no-ops.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	BaseURL  string `toml:"base_url"` // Overridable for tests
}

// SMTPConfig holds digest mail settings
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"` // From environment
	From     string `toml:"from"`
	To       string `toml:"to"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for stability; only user-facing
// settings need to appear in jobhunter.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:      "./data",
			OutputDir:    "./output",
			SiteConfigs:  "./site_configs",
			MasterResume: "./master_resume.toml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Scraper: ScraperConfig{
			MaxWorkers:     5,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			RequestDelay:   500 * time.Millisecond,
			BrowserWait:    3 * time.Second,
		},
		Scoring: ScoringConfig{
			Threshold:  60,
			CharBudget: 8000,
			Weights: map[string]float64{
				"skills_match":     0.4,
				"experience_match": 0.3,
				"location_fit":     0.2,
				"salary_fit":       0.1,
			},
		},
		LLM: LLMConfig{
			Primary: LLMProviderConfig{
				Name:    "local",
				BaseURL: "http://localhost:11434/v1",
				Model:   "qwen2.5:14b",
			},
			Fallback: LLMProviderConfig{
				Name:    "openrouter",
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "meta-llama/llama-3.3-70b-instruct",
			},
			RequestTimeout: 60 * time.Second,
			MaxJSONRetries: 1,
		},
		Notifications: NotificationsConfig{
			InstantThreshold: 80,
			DigestThreshold:  60,
			LogThreshold:     40,
		},
		Telegram: TelegramConfig{
			BaseURL: "https://api.telegram.org",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	config.resolvePaths()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides injects secrets and overrides from environment variables
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.Telegram.ChatID = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		config.SMTP.Password = v
	}
	if v := os.Getenv("LLM_FALLBACK_API_KEY"); v != "" {
		config.LLM.Fallback.APIKey = v
	}
	if v := os.Getenv("JOBHUNTER_LLM_BASE_URL"); v != "" {
		config.LLM.Primary.BaseURL = v
	}
}

// resolvePaths fills derived paths that default relative to the data directory
func (c *Config) resolvePaths() {
	if c.Paths.DatabaseFile == "" {
		c.Paths.DatabaseFile = c.Paths.DataDir + "/jobhunter.db"
	}
	if c.Paths.CheckpointDir == "" {
		c.Paths.CheckpointDir = c.Paths.DataDir + "/checkpoints"
	}
	if c.Paths.RawArchiveDir == "" {
		c.Paths.RawArchiveDir = c.Paths.DataDir + "/raw"
	}
}

// Validate checks structural constraints on the resolved configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	n := c.Notifications
	if n.InstantThreshold < n.DigestThreshold || n.DigestThreshold < n.LogThreshold {
		return fmt.Errorf("invalid configuration: notification thresholds must satisfy instant >= digest >= log (got %d/%d/%d)",
			n.InstantThreshold, n.DigestThreshold, n.LogThreshold)
	}
	return nil
}

// TelegramEnabled reports whether chat notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// SMTPEnabled reports whether digest mail is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.From != "" && c.SMTP.To != ""
}
