package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting for the service.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	Hub    HubConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// StoreConfig locates the sqlite database file.
type StoreConfig struct {
	Path string
}

// AuthConfig carries token signing settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// HubConfig tunes the realtime hub.
type HubConfig struct {
	// RequireAdminToken gates admin-attributed socket events behind a
	// verified bearer token.
	RequireAdminToken bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	authCfg, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	requireAdminToken, err := parseBoolEnv("WS_REQUIRE_ADMIN_TOKEN", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Store:  StoreConfig{Path: getEnvOrDefault("DB_PATH", "lumichat.db")},
		Auth:   authCfg,
		Hub:    HubConfig{RequireAdminToken: requireAdminToken},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":3001" or "127.0.0.1:3001" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("TOKEN_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return AuthConfig{}, fmt.Errorf("invalid TOKEN_TTL_HOURS value: %q", raw)
		}
		ttl = time.Duration(hours) * time.Hour
	}

	return AuthConfig{JWTSecret: secret, TokenTTL: ttl}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
