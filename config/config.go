package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds runtime configuration settings
type AppConfig struct {
	Env      string
	LogLevel string

	Host           string
	Port           string
	AllowedOrigins []string
	UploadLimit    float64 // uploads per second per client
	MaxUploadSize  int64

	UploadDir string
	OutputDir string

	DatabaseDriver string
	DatabaseURL    string

	Browser BrowserConfig

	ItemDelay    time.Duration
	CatalogsFile string

	Retention       time.Duration
	CleanupSchedule string
	ScheduledInput  string
	ScheduledCron   string
}

// BrowserConfig controls the automation session
type BrowserConfig struct {
	Headless        bool
	Bin             string
	UserAgent       string
	PageLoadTimeout time.Duration
	LaunchAttempts  int
	LaunchBackoff   time.Duration
}

// Load reads the configuration from the environment with defaults
func Load() *AppConfig {
	return &AppConfig{
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOGLEVEL", "")),

		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "5001"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		UploadLimit:    getEnvFloat("UPLOAD_RATE_LIMIT", 1),
		MaxUploadSize:  getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		OutputDir: getEnv("OUTPUT_DIR", "outputs"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		Browser: BrowserConfig{
			Headless:        getEnvBool("BROWSER_HEADLESS", true),
			Bin:             detectBrowserBin(),
			UserAgent:       getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"),
			PageLoadTimeout: getEnvDuration("PAGE_LOAD_TIMEOUT", 30*time.Second),
			LaunchAttempts:  getEnvInt("BROWSER_LAUNCH_ATTEMPTS", 3),
			LaunchBackoff:   getEnvDuration("BROWSER_LAUNCH_BACKOFF", 2*time.Second),
		},

		ItemDelay:    getEnvDuration("ITEM_DELAY", time.Second),
		CatalogsFile: os.Getenv("CATALOGS_FILE"),

		Retention:       getEnvDuration("OUTPUT_RETENTION", 7*24*time.Hour),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		ScheduledInput:  os.Getenv("SCHEDULED_INPUT"),
		ScheduledCron:   os.Getenv("SCHEDULED_CRON"),
	}
}

// Addr returns the listen address
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// IsProduction reports whether ENV=production
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// detectBrowserBin prefers an explicit binary, then the system Chromium
// installed in the container image, else lets rod download one.
func detectBrowserBin() string {
	if bin := os.Getenv("BROWSER_BIN"); bin != "" {
		return bin
	}
	if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
		return "/usr/bin/chromium-browser"
	}
	return ""
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
