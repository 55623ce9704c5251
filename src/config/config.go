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
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret   string
	CSRFAuthKey []byte
	SessionTTL  time.Duration

	// Remote backends
	CRMScheme         string
	CRMHost           string
	AutomationBaseURL string
	BankDirectoryURL  string
	HTTPTimeout       time.Duration

	// Tenant resolution
	DefaultTenant string
	TenantMap     map[string]string

	// Screen state
	WorkspaceTTL           time.Duration
	CustomerSearchDebounce time.Duration

	// CORS
	AllowedOrigins []string
}

// ErrMissingRequired is returned when a required variable is not set.
var ErrMissingRequired = errors.New("required environment variable not set")

// LoadDotEnv tries the current directory first and then its parent,
// which is the common layout when running from /backend.
func LoadDotEnv() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
		return
	}
	log.Println(".env file loaded successfully.")
}

// LoadConfig builds the configuration from the process environment.
// It never touches package state; callers inject the result.
func LoadConfig() (*AppConfig, error) {
	jwtSecret, err := getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	csrfAuthKey, err := getRequiredEnv("CSRF_AUTH_KEY")
	if err != nil {
		return nil, err
	}
	crmHost, err := getRequiredEnv("CRM_HOST")
	if err != nil {
		return nil, err
	}
	automationBaseURL, err := getRequiredEnv("AUTOMATION_BASE_URL")
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./backoffice.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:   jwtSecret,
		CSRFAuthKey: []byte(csrfAuthKey),
		SessionTTL:  getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		CRMScheme:         getEnv("CRM_SCHEME", "https"),
		CRMHost:           strings.Trim(crmHost, "/"),
		AutomationBaseURL: strings.TrimRight(automationBaseURL, "/"),
		BankDirectoryURL:  getEnv("BANK_DIRECTORY_URL", "https://brasilapi.com.br/api/banks/v1"),
		HTTPTimeout:       getEnvAsDuration("HTTP_TIMEOUT", 0),

		DefaultTenant: getEnv("DEFAULT_TENANT", "matriz"),
		TenantMap:     parseTenantMap(getEnv("TENANT_MAP", "")),

		WorkspaceTTL:           getEnvAsDuration("WORKSPACE_TTL", 30*time.Minute),
		CustomerSearchDebounce: getEnvAsDuration("CUSTOMER_SEARCH_DEBOUNCE", 500*time.Millisecond),

		AllowedOrigins: getList("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, CRMHost=%s, Tenants=%d",
		cfg.Port, cfg.LogLevel, cfg.DatabasePath, cfg.CRMHost, len(cfg.TenantMap))
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getRequiredEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequired, key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTenantMap reads "alias=empresa,alias2=empresa2".
func parseTenantMap(raw string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		alias, tenant, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		alias = strings.ToLower(strings.TrimSpace(alias))
		tenant = strings.TrimSpace(tenant)
		if alias == "" || tenant == "" {
			continue
		}
		m[alias] = tenant
	}
	return m
}
