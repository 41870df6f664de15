package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Limits   Limits
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Sheets   SheetsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	DeepFetch   bool
	MaxRetries  int
	CookiesFile string
	OutputDir   string
}

// Limits is the immutable parameter bag shaping a single scrape: the
// scroll loop, the time/item budgets and the deep-fetch pass. It is
// passed by value through the pipeline and carries no identity.
type Limits struct {
	MaxItems             int
	MaxDuration          time.Duration
	MaxRounds            int
	WarmupRounds         int
	IdleRounds           int
	PauseMin             time.Duration
	PauseMax             time.Duration
	NetworkIdleEvery     int
	NetworkIdleTimeout   time.Duration
	DeepFetchMax         int
	DeepFetchConcurrency int
	DeepFetchDelayMin    time.Duration
	DeepFetchDelayMax    time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	BlockHeavy     bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type SheetsConfig struct {
	Enabled         bool
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	ResetWorksheet  bool
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			DeepFetch:   getBoolOrDefault("DEEP_FETCH", true),
			MaxRetries:  getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			CookiesFile: getEnvOrDefault("COOKIES_FILE", "cookies.json"),
			OutputDir:   getEnvOrDefault("OUTPUT_DIR", "output"),
		},
		Limits:  LoadLimits(),
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 60*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			BlockHeavy:     getBoolOrDefault("BROWSER_BLOCK_HEAVY", true),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "depop_scraper"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:scrapes"),
		},
		Sheets: SheetsConfig{
			Enabled:         getBoolOrDefault("SHEETS_ENABLED", false),
			SpreadsheetID:   getEnvOrDefault("SHEETS_SPREADSHEET_ID", ""),
			CredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
			CredentialsJSON: getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT", ""),
			ResetWorksheet:  getBoolOrDefault("SHEETS_RESET_WORKSHEET", false),
			MaxRetries:      getIntOrDefault("SHEETS_MAX_RETRIES", 5),
			RetryBaseDelay:  getDurationOrDefault("SHEETS_RETRY_BASE_DELAY", time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// LoadLimits reads the scrape limits from the environment with the
// recognized option names; every option has a default.
func LoadLimits() Limits {
	return Limits{
		MaxItems:             getIntOrDefault("MAX_ITEMS", 8000),
		MaxDuration:          time.Duration(getIntOrDefault("MAX_DURATION_S", 900)) * time.Second,
		MaxRounds:            getIntOrDefault("MAX_ROUNDS", 400),
		WarmupRounds:         getIntOrDefault("WARMUP_ROUNDS", 6),
		IdleRounds:           getIntOrDefault("IDLE_ROUNDS", 6),
		PauseMin:             time.Duration(getIntOrDefault("PAUSE_MIN", 500)) * time.Millisecond,
		PauseMax:             time.Duration(getIntOrDefault("PAUSE_MAX", 900)) * time.Millisecond,
		NetworkIdleEvery:     getIntOrDefault("NETWORK_IDLE_EVERY", 12),
		NetworkIdleTimeout:   time.Duration(getIntOrDefault("NETWORK_IDLE_TIMEOUT", 5000)) * time.Millisecond,
		DeepFetchMax:         getIntOrDefault("DEEP_FETCH_MAX", 1200),
		DeepFetchConcurrency: getIntOrDefault("DEEP_FETCH_CONCURRENCY", 3),
		DeepFetchDelayMin:    time.Duration(getIntOrDefault("DEEP_FETCH_DELAY_MIN", 800)) * time.Millisecond,
		DeepFetchDelayMax:    time.Duration(getIntOrDefault("DEEP_FETCH_DELAY_MAX", 1600)) * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}

	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("SHEETS_SPREADSHEET_ID is required when SHEETS_ENABLED is set")
	}

	return nil
}

func (l Limits) Validate() error {
	if l.MaxItems < 1 {
		return fmt.Errorf("MAX_ITEMS must be at least 1")
	}

	if l.MaxRounds < 1 {
		return fmt.Errorf("MAX_ROUNDS must be at least 1")
	}

	if l.IdleRounds < 1 {
		return fmt.Errorf("IDLE_ROUNDS must be at least 1")
	}

	if l.PauseMin > l.PauseMax {
		return fmt.Errorf("PAUSE_MIN cannot be greater than PAUSE_MAX")
	}

	if l.DeepFetchDelayMin > l.DeepFetchDelayMax {
		return fmt.Errorf("DEEP_FETCH_DELAY_MIN cannot be greater than DEEP_FETCH_DELAY_MAX")
	}

	if l.DeepFetchConcurrency < 1 {
		return fmt.Errorf("DEEP_FETCH_CONCURRENCY must be at least 1")
	}

	if l.NetworkIdleEvery < 1 {
		return fmt.Errorf("NETWORK_IDLE_EVERY must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
