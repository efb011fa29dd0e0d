package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting services.
type Config struct {
	ListenAddr               string
	MySQLDSN                 string
	JWTSecret                string
	JWTExpiration            time.Duration
	GeneratorURL             string
	GeneratorAPIKey          string
	RequestTimeout           time.Duration
	WelcomeBonusCredits      int
	GenerationCost           int
	SessionTTL               time.Duration
	MaxUploadBytes           int64
	CORSOrigins              []string
	AdminUsername            string
	AdminPassword            string
	PaymentCurrency          string
	PaymentPriceMinorUnits   int
	PaymentCreditsPerPackage int
	TelegramBotToken         string
	TelegramAlertChatID      int64
	S3Endpoint               string
	S3Region                 string
	S3AccessKey              string
	S3SecretKey              string
	S3Bucket                 string
	S3UsePathStyle           bool
	S3Prefix                 string
	LogLevel                 string
}

// ArchiveEnabled reports whether every S3 setting needed by the extraction archive is present.
func (c Config) ArchiveEnabled() bool {
	return c.S3Region != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
}

// AlertsEnabled reports whether Telegram ops alerts can be sent.
func (c Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:               getEnv("LISTEN_ADDR", ":5000"),
		JWTExpiration:            time.Hour * time.Duration(getInt("JWT_EXPIRATION_HOURS", 24)),
		GeneratorURL:             normalizeGeneratorURL(os.Getenv("GENERATOR_URL")),
		GeneratorAPIKey:          os.Getenv("GENERATOR_API_KEY"),
		RequestTimeout:           time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		WelcomeBonusCredits:      getInt("WELCOME_BONUS_CREDITS", 3),
		GenerationCost:           getInt("GENERATION_COST", 1),
		SessionTTL:               time.Minute * time.Duration(getInt("EXTRACTION_SESSION_TTL_MINUTES", 30)),
		MaxUploadBytes:           int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		CORSOrigins:              splitList(getEnv("CORS_ORIGINS", "*")),
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:            getEnv("ADMIN_PASSWORD", "change-me"),
		PaymentCurrency:          getEnv("PAYMENT_CURRENCY", "USD"),
		PaymentPriceMinorUnits:   getInt("PAYMENT_PRICE_MINOR_UNITS", 499),
		PaymentCreditsPerPackage: getInt("PAYMENT_CREDITS_PER_PACKAGE", 5),
		TelegramBotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAlertChatID:      getInt64("TELEGRAM_ALERT_CHAT_ID", 0),
		S3Endpoint:               getEnv("S3_ENDPOINT", ""),
		S3Region:                 os.Getenv("S3_REGION"),
		S3AccessKey:              os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:              os.Getenv("S3_SECRET_KEY"),
		S3Bucket:                 os.Getenv("S3_BUCKET"),
		S3UsePathStyle:           getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:                 getEnv("S3_PREFIX", "extracted"),
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.GeneratorURL == "" {
		missing = append(missing, "GENERATOR_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.GenerationCost <= 0 {
		return Config{}, fmt.Errorf("GENERATION_COST must be positive, got %d", cfg.GenerationCost)
	}
	if cfg.WelcomeBonusCredits < 0 {
		return Config{}, fmt.Errorf("WELCOME_BONUS_CREDITS must not be negative, got %d", cfg.WelcomeBonusCredits)
	}

	return cfg, nil
}

// normalizeGeneratorURL adds a scheme when the operator configured a bare host.
func normalizeGeneratorURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.String()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile loads the first dotenv file found. Running without one is fine,
// the process environment is used as is.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
