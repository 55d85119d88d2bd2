// Load .env, then the YAML config file, then env overrides, then defaults.

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	LLM           LLMConfig          `yaml:"llm"`
	Scraper       ScraperConfig      `yaml:"scraper"`
	Browser       BrowserConfig      `yaml:"browser"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	Environment string   `yaml:"environment"`
	Version     string   `yaml:"version"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// postgres or sqlite
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LLMConfig struct {
	// googleai, openai or vertexai
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	GCPProject      string `yaml:"gcp_project"`
	GCPLocation     string `yaml:"gcp_location"`
	MaxPromptLength int    `yaml:"max_prompt_length"`
}

type ScraperConfig struct {
	IndeedBaseURL      string        `yaml:"indeed_base_url"`
	IndeedPublisherID  string        `yaml:"indeed_publisher_id"`
	LinkedInBaseURL    string        `yaml:"linkedin_base_url"`
	GlassdoorBaseURL   string        `yaml:"glassdoor_base_url"`
	GlassdoorPartnerID string        `yaml:"glassdoor_partner_id"`
	GlassdoorAPIKey    string        `yaml:"glassdoor_api_key"`
	UserAgent          string        `yaml:"user_agent"`
	Timeout            time.Duration `yaml:"timeout"`
	ResultsPerSource   int           `yaml:"results_per_source"`
	// RequestDelay is the pause after each request to the same host.
	RequestDelay time.Duration `yaml:"request_delay"`
	Parallelism  int           `yaml:"parallelism"`
}

type BrowserConfig struct {
	// Headed shows the browser window while submitting.
	Headed  bool          `yaml:"headed"`
	Timeout time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	ApprovalTimeout       time.Duration `yaml:"approval_timeout"`
	FollowupDays          []int         `yaml:"followup_days"`
	MaxApplicationsPerDay int           `yaml:"max_applications_per_day"`
	// Applications left in draft or pending_approval longer than this are reconciled.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type NotificationConfig struct {
	TelegramToken        string `yaml:"telegram_token"`
	TelegramChatID       int64  `yaml:"telegram_chat_id"`
	GmailEnabled         bool   `yaml:"gmail_enabled"`
	GmailCredentialsPath string `yaml:"gmail_credentials_path"`
	GmailTokenPath       string `yaml:"gmail_token_path"`
	// User whose inbox is tracked for recruiter replies.
	InboxUserID string `yaml:"inbox_user_id"`
}

type SchedulerConfig struct {
	Disabled    bool   `yaml:"disabled"`
	DailySearch string `yaml:"daily_search"`
	Reconcile   string `yaml:"reconcile"`
	Reminders   string `yaml:"reminders"`
	InboxSync   string `yaml:"inbox_sync"`
}

// Load reads the configuration from CONFIG_PATH (default configs/config.yaml).
// A missing file is not an error; env vars and defaults still apply.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		log.Printf("⚠️ Config file %s not found, using env and defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.Environment, "APP_ENV")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.GCPProject, "GOOGLE_CLOUD_PROJECT")
	setString(&cfg.LLM.GCPLocation, "GOOGLE_CLOUD_LOCATION")

	setString(&cfg.Scraper.IndeedPublisherID, "INDEED_PUBLISHER_ID")
	setString(&cfg.Scraper.GlassdoorPartnerID, "GLASSDOOR_PARTNER_ID")
	setString(&cfg.Scraper.GlassdoorAPIKey, "GLASSDOOR_API_KEY")

	if v := os.Getenv("BROWSER_HEADED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BROWSER_HEADED: %w", err)
		}
		cfg.Browser.Headed = b
	}

	if v := os.Getenv("APPROVAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid APPROVAL_TIMEOUT: %w", err)
		}
		cfg.Pipeline.ApprovalTimeout = d
	}
	if v := os.Getenv("APPLICATION_FOLLOWUP_DAYS"); v != "" {
		days, err := ParseFollowupDays(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.FollowupDays = days
	}
	if v := os.Getenv("MAX_APPLICATIONS_PER_DAY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_APPLICATIONS_PER_DAY: %w", err)
		}
		cfg.Pipeline.MaxApplicationsPerDay = n
	}

	setString(&cfg.Notifications.TelegramToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notifications.TelegramChatID = id
	}
	if v := os.Getenv("GMAIL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GMAIL_ENABLED: %w", err)
		}
		cfg.Notifications.GmailEnabled = b
	}
	setString(&cfg.Notifications.GmailCredentialsPath, "GMAIL_CREDENTIALS_PATH")
	setString(&cfg.Notifications.GmailTokenPath, "GMAIL_TOKEN_PATH")
	setString(&cfg.Notifications.InboxUserID, "INBOX_USER_ID")

	if v := os.Getenv("SCHEDULER_DISABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_DISABLED: %w", err)
		}
		cfg.Scheduler.Disabled = b
	}
	setString(&cfg.Scheduler.DailySearch, "DAILY_SEARCH_SCHEDULE")
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver == "sqlite" {
			cfg.Database.DSN = "agentice.db"
		} else {
			cfg.Database.DSN = "host=localhost user=postgres password=password dbname=agentice port=5432 sslmode=disable"
		}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "googleai"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o-mini"
		default:
			cfg.LLM.Model = "gemini-2.5-flash"
		}
	}
	if cfg.LLM.GCPLocation == "" {
		cfg.LLM.GCPLocation = "us-central1"
	}
	if cfg.LLM.MaxPromptLength == 0 {
		cfg.LLM.MaxPromptLength = 32000
	}

	if cfg.Scraper.IndeedBaseURL == "" {
		cfg.Scraper.IndeedBaseURL = "https://api.indeed.com"
	}
	if cfg.Scraper.LinkedInBaseURL == "" {
		cfg.Scraper.LinkedInBaseURL = "https://www.linkedin.com"
	}
	if cfg.Scraper.GlassdoorBaseURL == "" {
		cfg.Scraper.GlassdoorBaseURL = "https://api.glassdoor.com"
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.Scraper.Timeout == 0 {
		cfg.Scraper.Timeout = 30 * time.Second
	}
	if cfg.Scraper.RequestDelay == 0 {
		cfg.Scraper.RequestDelay = 2 * time.Second
	}
	if cfg.Scraper.Parallelism == 0 {
		cfg.Scraper.Parallelism = 1
	}
	if cfg.Scraper.ResultsPerSource == 0 {
		cfg.Scraper.ResultsPerSource = 25
	}

	if cfg.Browser.Timeout == 0 {
		cfg.Browser.Timeout = 30 * time.Second
	}

	if cfg.Pipeline.ApprovalTimeout == 0 {
		cfg.Pipeline.ApprovalTimeout = 24 * time.Hour
	}
	if len(cfg.Pipeline.FollowupDays) == 0 {
		cfg.Pipeline.FollowupDays = []int{7, 14, 21}
	}
	if cfg.Pipeline.MaxApplicationsPerDay == 0 {
		cfg.Pipeline.MaxApplicationsPerDay = 10
	}
	if cfg.Pipeline.StaleAfter == 0 {
		cfg.Pipeline.StaleAfter = cfg.Pipeline.ApprovalTimeout + time.Hour
	}

	if cfg.Notifications.GmailCredentialsPath == "" {
		cfg.Notifications.GmailCredentialsPath = "credential.json"
	}
	if cfg.Notifications.GmailTokenPath == "" {
		cfg.Notifications.GmailTokenPath = "token.json"
	}

	if cfg.Scheduler.DailySearch == "" {
		cfg.Scheduler.DailySearch = "@every 24h"
	}
	if cfg.Scheduler.Reconcile == "" {
		cfg.Scheduler.Reconcile = "@every 1h"
	}
	if cfg.Scheduler.Reminders == "" {
		cfg.Scheduler.Reminders = "@every 15m"
	}
	if cfg.Scheduler.InboxSync == "" {
		cfg.Scheduler.InboxSync = "@every 15m"
	}
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "googleai", "openai", "vertexai":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Pipeline.MaxApplicationsPerDay < 0 {
		return errors.New("max_applications_per_day must not be negative")
	}
	if c.Pipeline.ApprovalTimeout < 0 {
		return errors.New("approval_timeout must not be negative")
	}
	for _, d := range c.Pipeline.FollowupDays {
		if d <= 0 {
			return fmt.Errorf("followup day %d must be positive", d)
		}
	}
	return nil
}

// ParseFollowupDays parses a comma separated list such as "7,14,21".
func ParseFollowupDays(s string) ([]int, error) {
	var days []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid followup day %q: %w", part, err)
		}
		days = append(days, n)
	}
	return days, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
