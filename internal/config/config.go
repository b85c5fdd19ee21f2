package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"sandwach/internal/models"
)

// Config is loaded once at startup from the environment (plus an optional
// .env file) and treated as immutable afterwards.
type Config struct {
	APIKey      string
	LocationKey string

	DBPath   string
	Port     string
	Timezone string

	CacheTTL time.Duration

	// Daily trigger hours for the two analysis windows.
	EveningHour int
	MorningHour int

	// Wall-clock spans the decision engine selects forecast hours from.
	SleepStartHour int
	SleepEndHour   int
	DayStartHour   int
	DayEndHour     int

	Thresholds models.ThresholdConfig

	NtfyEnabled bool
	NtfyServer  string
	NtfyTopic   string
	NtfyToken   string

	DesktopEnabled bool
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := &Config{
		APIKey:      os.Getenv("ACCUWEATHER_API_KEY"),
		LocationKey: getenvDefault("LOCATION_KEY", "327347"),

		DBPath:   getenvDefault("DB_PATH", "data/sandwach.db"),
		Port:     getenvDefault("PORT", "8080"),
		Timezone: getenvDefault("TIMEZONE", "America/Denver"),

		EveningHour: getenvInt("EVENING_ANALYSIS_HOUR", 20),
		MorningHour: getenvInt("MORNING_ANALYSIS_HOUR", 7),

		SleepStartHour: getenvInt("SLEEP_START_HOUR", 21),
		SleepEndHour:   getenvInt("SLEEP_END_HOUR", 7),
		DayStartHour:   getenvInt("DAY_START_HOUR", 8),
		DayEndHour:     getenvInt("DAY_END_HOUR", 20),

		Thresholds: models.ThresholdConfig{
			ACTriggerTemp:   getenvFloat("AC_TRIGGER_TEMP", 75),
			HeatTriggerTemp: getenvFloat("HEAT_TRIGGER_TEMP", 40),
			WindowSafeMin:   getenvFloat("WINDOW_SAFE_MIN", 50),
			WindowSafeMax:   getenvFloat("WINDOW_SAFE_MAX", 72),
			RainCloseProb:   getenvInt("RAIN_CLOSE_PROB", 50),
		},

		NtfyEnabled: getenvBool("NTFY_ENABLED", false),
		NtfyServer:  getenvDefault("NTFY_SERVER", "https://ntfy.sh"),
		NtfyTopic:   getenvDefault("NTFY_TOPIC", "sandwach"),
		NtfyToken:   os.Getenv("NTFY_AUTH_TOKEN"),

		DesktopEnabled: getenvBool("DESKTOP_NOTIFY_ENABLED", true),
	}

	ttlStr := getenvDefault("CACHE_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	for name, h := range map[string]int{
		"EVENING_ANALYSIS_HOUR": c.EveningHour,
		"MORNING_ANALYSIS_HOUR": c.MorningHour,
		"SLEEP_START_HOUR":      c.SleepStartHour,
		"SLEEP_END_HOUR":        c.SleepEndHour,
		"DAY_START_HOUR":        c.DayStartHour,
		"DAY_END_HOUR":          c.DayEndHour,
	} {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s must be between 0 and 23, got %d", name, h)
		}
	}
	if c.Thresholds.WindowSafeMin >= c.Thresholds.WindowSafeMax {
		return fmt.Errorf("WINDOW_SAFE_MIN must be below WINDOW_SAFE_MAX")
	}
	if c.Thresholds.RainCloseProb < 0 || c.Thresholds.RainCloseProb > 100 {
		return fmt.Errorf("RAIN_CLOSE_PROB must be between 0 and 100")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
