// Package config provides configuration management for the foodies backend.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting: all problems are gathered and reported at once
// instead of failing on the first one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig represents configuration for the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret     string        // Secret key for signing bearer tokens
	TokenDuration time.Duration // Lifetime of issued tokens
	BcryptCost    int           // Cost factor for password hashing
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// UploadConfig holds the directories used for file intake and public storage.
// TempDir receives raw multipart uploads; PublicDir is where the services
// relocate accepted files (recipe images, avatars) for static serving.
type UploadConfig struct {
	PublicDir string
	TempDir   string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB      *DatabaseConfig
	Auth    *AuthConfig
	Server  *ServerConfig
	Uploads *UploadConfig
}

// getRequiredEnv reads an env var that must be present, collecting an error
// when it is missing.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads an env var with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an env var parsed as an int. Uses defaultValue if
// not set; collects an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration reads an env var parsed as a time.Duration
// ("15m", "168h"). Uses defaultValue if not set; collects an error on a
// malformed value.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the pool size within [5, 100], collecting a note when
// the configured value had to be adjusted.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5, clamping to 5", varName, size))
		return 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// clampBcryptCost keeps the bcrypt cost factor within [4, 31], the range
// bcrypt itself accepts.
func clampBcryptCost(cost int, errors *[]string) int {
	if cost < 4 || cost > 31 {
		*errors = append(*errors, fmt.Sprintf("BCRYPT_COST (%d) out of range [4, 31], using 10", cost))
		return 10
	}
	return cost
}

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database configuration
	dbUser := getRequiredEnv("DB_USER", &errors)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
	dbName := getRequiredEnv("DB_NAME", &errors)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
	poolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), "DB_POOL_SIZE", &errors)

	dbConfig := &DatabaseConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  poolSize,
	}

	// Auth configuration
	jwtSecret := getRequiredEnv("JWT_SECRET", &errors)
	tokenDuration := getOptionalEnvDuration("JWT_EXPIRES_IN", 168*time.Hour, &errors) // 7 days
	bcryptCost := clampBcryptCost(getOptionalEnvInt("BCRYPT_COST", 10, &errors), &errors)

	authConfig := &AuthConfig{
		JWTSecret:     jwtSecret,
		TokenDuration: tokenDuration,
		BcryptCost:    bcryptCost,
	}

	// Server configuration
	serverConfig := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
	}

	// Upload directories
	uploadConfig := &UploadConfig{
		PublicDir: getOptionalEnv("PUBLIC_DIR", "./public"),
		TempDir:   getOptionalEnv("TMP_DIR", "./tmp"),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:      dbConfig,
		Auth:    authConfig,
		Server:  serverConfig,
		Uploads: uploadConfig,
	}, nil
}
