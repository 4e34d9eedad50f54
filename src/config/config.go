package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	JWTSecret         string
	Port              string
	DatabasePath      string
	StoreKind         string
	LogLevel          string
	AccessTokenExpiry time.Duration

	// Market data
	YahooBaseURL       string
	YahooSessionURL    string
	QuoteTimeout       time.Duration
	QuoteConcurrency   int
	QuoteRatePerSecond float64
	LogoBaseURL        string

	// Inbound HTTP
	AllowedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	EmailServiceProvider string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

const defaultJWTSecret = "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes"

// LoadConfig reads .env (if present) and the process environment.
// The returned config is passed explicitly to every component that needs it.
func LoadConfig() *AppConfig {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	if jwtSecret == defaultJWTSecret {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	cfg := &AppConfig{
		JWTSecret:         jwtSecret,
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "./finflow.db"),
		StoreKind:         strings.ToLower(strings.TrimSpace(getEnv("STORE_KIND", "sqlite"))),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),

		YahooBaseURL:       strings.TrimRight(getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"), "/"),
		YahooSessionURL:    getEnv("YAHOO_SESSION_URL", "https://finance.yahoo.com/quote/AAPL"),
		QuoteTimeout:       getEnvAsDuration("QUOTE_TIMEOUT", 5*time.Second),
		QuoteConcurrency:   getEnvAsInt("QUOTE_CONCURRENCY", 8),
		QuoteRatePerSecond: getEnvAsFloat("QUOTE_RATE_PER_SECOND", 10),
		LogoBaseURL:        getEnv("LOGO_BASE_URL", "https://logo.clearbit.com/%s"),

		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),

		EmailServiceProvider: strings.ToLower(getEnv("EMAIL_SERVICE_PROVIDER", "mock")),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:           getEnv("SENDER_NAME", "FinFlow"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
	}

	if cfg.QuoteConcurrency < 1 {
		log.Printf("WARNING: QUOTE_CONCURRENCY must be positive, got %d. Using 1.", cfg.QuoteConcurrency)
		cfg.QuoteConcurrency = 1
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, StoreKind=%s, EmailProvider=%s",
		cfg.Port, cfg.LogLevel, cfg.DatabasePath, cfg.StoreKind, cfg.EmailServiceProvider)
	return cfg
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid number for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
