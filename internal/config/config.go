package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	NodeEnv    string
	Port       string
	PathPrefix string
	JWTSecret  string
	EncKey     string

	// UseTestAPI is handed to every carrier adapter; there is no
	// per-carrier setting. When it is set, dhl prefixes its parcel and label
	// paths with /test and packeta with /sandbox; gls ignores it and always
	// calls its configured endpoints.
	UseTestAPI bool
	HTTPDebug     bool
	HTTPDebugFull bool

	Database DatabaseConfig
	DHL      DHLConfig
	GLS      GLSConfig
	Packeta  PacketaConfig
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// DHLConfig holds credentials for the DHL adapter (API-key auth, no OAuth).
type DHLConfig struct {
	BaseURL        string
	APIKey         string
	AccountingCode string
}

// GLSConfig holds credentials for the GLS adapter (Basic, with OAuth2
// fallback for accounts where Basic auth is disabled).
type GLSConfig struct {
	BaseURL      string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// PacketaConfig holds credentials for the Packeta adapter (API-key auth).
type PacketaConfig struct {
	BaseURL string
	APIKey  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	pathPrefix := os.Getenv("HTTP_PATH_PREFIX")
	if pathPrefix != "" && !strings.HasPrefix(pathPrefix, "/") {
		pathPrefix = "/" + pathPrefix
	}
	pathPrefix = strings.TrimRight(pathPrefix, "/")

	return &Config{
		NodeEnv:    getEnv("NODE_ENV", "development"),
		Port:       getEnv("PORT", "3210"),
		PathPrefix: pathPrefix,
		JWTSecret:  jwtSecret,
		EncKey:     os.Getenv("ENC_KEY"),

		UseTestAPI:    getEnv("USE_TEST_API", "true") == "true",
		HTTPDebug:     getEnv("HTTP_DEBUG", "false") == "true",
		HTTPDebugFull: getEnv("HTTP_DEBUG_FULL", "false") == "true",

		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "shipfabric"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},

		DHL: DHLConfig{
			BaseURL:        getEnv("DHL_BASE_URL", "https://api-eu.dhl.com/parcel/de/shipping/v2"),
			APIKey:         os.Getenv("DHL_API_KEY"),
			AccountingCode: os.Getenv("DHL_ACCOUNTING_CODE"),
		},
		GLS: GLSConfig{
			BaseURL:      getEnv("GLS_BASE_URL", "https://api.gls-group.eu/public/v1"),
			Username:     os.Getenv("GLS_USERNAME"),
			Password:     os.Getenv("GLS_PASSWORD"),
			ClientID:     os.Getenv("GLS_CLIENT_ID"),
			ClientSecret: os.Getenv("GLS_CLIENT_SECRET"),
			TokenURL:     getEnv("GLS_TOKEN_URL", "https://api.gls-group.eu/oauth/token"),
		},
		Packeta: PacketaConfig{
			BaseURL: getEnv("PACKETA_BASE_URL", "https://api.packeta.com/v1"),
			APIKey:  os.Getenv("PACKETA_API_KEY"),
		},
	}, nil
}

// getEnv gets environment variable with default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
