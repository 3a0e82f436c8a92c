package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"newsmill" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"newsmill" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newsmill" description:"Database name"`

	// Redis configuration
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for rate limiting and job dedup (optional)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`

	// OpenAI configuration
	OpenAIAPIKey string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (optional, templated fallback without it)"`
	OpenAIModel  string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model for article transformation"`

	// Telegram configuration
	TelegramBotToken string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token for channel publishing"`
	TelegramChatID   string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram channel or chat identifier"`

	// Site configuration
	SiteURL string `long:"site-url" env:"SITE_URL" default:"https://newsmill.io" description:"Public site base URL for article links"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for pipeline tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"1800" description:"Scheduler interval in seconds"`
	RepublishEvery    int    `long:"republish-every" env:"REPUBLISH_EVERY" default:"4" description:"Run the republish sweep every N scheduler ticks"`
	BatchSize         int    `long:"batch-size" env:"BATCH_SIZE" default:"20" description:"Maximum unprocessed items handled per pipeline run"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the trigger endpoints (optional)"`
	RateLimit         int    `long:"rate-limit" env:"RATE_LIMIT" default:"30" description:"Allowed requests per rate limit window"`
	RateWindow        int    `long:"rate-window" env:"RATE_WINDOW" default:"60" description:"Rate limit window in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsmill/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIModel:       raw.OpenAIModel,
		TelegramBotToken:  raw.TelegramBotToken,
		TelegramChatID:    raw.TelegramChatID,
		SiteURL:           raw.SiteURL,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RepublishEvery:    raw.RepublishEvery,
		BatchSize:         raw.BatchSize,
		APIAccessKey:      raw.APIAccessKey,
		RateLimit:         raw.RateLimit,
		RateWindow:        raw.RateWindow,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
