package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AppURL      string
	Timezone    string

	JWTSecret     string
	JWTTTL        time.Duration
	AdminEmail    string
	AdminPassword string

	DemoMode     bool
	DemoBusiness string

	NotifyProvider    string
	WhatsAppToken     string
	WhatsAppPhoneID   string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	RedisURL string

	AutomationEnabled bool
	NoShowInterval    time.Duration
	NoShowGrace       time.Duration
	FeedbackInterval  time.Duration
	LoyaltyInterval   time.Duration
	UpcomingInterval  time.Duration
	SweepBatchSize    int

	RateLimitPerMinute         int
	RateLimitBurst             int
	BusinessRateLimitPerMinute int
	BusinessRateLimitBurst     int

	LogLevel       string
	LogDevelopment bool
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
	LogMaxAgeDays  int
}

// Load reads the environment, after merging an optional .env file from the
// working directory.
func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),
		AppURL:      strings.TrimRight(readString("APP_URL", "http://localhost:3000"), "/"),
		Timezone:    readString("TIMEZONE", "Local"),

		JWTSecret:     readString("JWT_SECRET", "change-me"),
		JWTTTL:        time.Duration(readInt("JWT_TTL_HOURS", 24*7)) * time.Hour,
		AdminEmail:    readString("ADMIN_EMAIL", "admin@eline.app"),
		AdminPassword: readString("ADMIN_PASSWORD", "admin123"),

		DemoMode:     readBool("DEMO_MODE", false),
		DemoBusiness: readString("DEMO_BUSINESS", "demo"),

		NotifyProvider:    readString("NOTIFY_PROVIDER", "auto"),
		WhatsAppToken:     os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID:   os.Getenv("WHATSAPP_PHONE_ID"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),

		RedisURL: os.Getenv("REDIS_URL"),

		AutomationEnabled: readBool("AUTOMATION_ENABLED", true),
		NoShowInterval:    readDurationSeconds("NO_SHOW_SCAN_INTERVAL_SECONDS", 300),
		NoShowGrace:       time.Duration(readInt("NO_SHOW_GRACE_MINUTES", 15)) * time.Minute,
		FeedbackInterval:  readDurationSeconds("FEEDBACK_SCAN_INTERVAL_SECONDS", 600),
		LoyaltyInterval:   readDurationSeconds("LOYALTY_SCAN_INTERVAL_SECONDS", 3600),
		UpcomingInterval:  readDurationSeconds("UPCOMING_SCAN_INTERVAL_SECONDS", 120),
		SweepBatchSize:    readInt("SWEEP_BATCH_SIZE", 200),

		RateLimitPerMinute:         readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:             readInt("RATE_LIMIT_BURST", 30),
		BusinessRateLimitPerMinute: readInt("BUSINESS_RATE_LIMIT_PER_MIN", 600),
		BusinessRateLimitBurst:     readInt("BUSINESS_RATE_LIMIT_BURST", 120),

		LogLevel:       readString("LOG_LEVEL", "info"),
		LogDevelopment: readBool("LOG_DEVELOPMENT", false),
		LogFile:        os.Getenv("LOG_FILE"),
		LogMaxSizeMB:   readInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:  readInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:  readInt("LOG_MAX_AGE_DAYS", 30),
	}
}

// Location resolves Timezone, falling back to the process local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func readString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
