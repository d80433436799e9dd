package helper

import (
	"fmt"
	"os"
	"strconv"

	database "github.com/yishak-cs/themenu/internal/database"
	"github.com/yishak-cs/themenu/internal/services"
)

// AppConfig is everything the server reads from the environment.
type AppConfig struct {
	Port      string
	JWTSecret string
	LogLevel  string
	LogFormat string

	SQL   database.SQLConfig
	Neo4j database.GraphConfig
	S3    services.S3Config
}

// LoadConfigFromEnv loads the application configuration from environment variables
func LoadConfigFromEnv() AppConfig {
	return AppConfig{
		Port:      getEnvOrDefault("APP_PORT", "8080"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
		SQL:       loadSQLConfig(),
		Neo4j: database.GraphConfig{
			URI:      getEnvOrDefault("NEO4J_URI", ""),
			Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
			Password: getEnvOrDefault("NEO4J_PASSWORD", ""),
			Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
		},
		S3: services.S3Config{
			Bucket:    getEnvOrDefault("S3_BUCKET", ""),
			Region:    getEnvOrDefault("S3_REGION", os.Getenv("AWS_REGION")),
			PublicURL: getEnvOrDefault("S3_PUBLIC_URL", ""),
		},
	}
}

func loadSQLConfig() database.SQLConfig {
	cfg := database.SQLConfig{
		Driver:       getEnvOrDefault("DB_DRIVER", "sqlite"),
		DSN:          os.Getenv("DB_DSN"),
		MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
	}
	if cfg.DSN != "" {
		return cfg
	}

	switch cfg.Driver {
	case "postgres":
		cfg.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			getEnvOrDefault("DB_NAME", "themenu"),
			getEnvOrDefault("DB_PORT", "5432"),
		)
	default:
		cfg.DSN = "themenu.db"
	}
	return cfg
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or the default when unset or malformed
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
