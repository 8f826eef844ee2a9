package config

import (
	"os"
)

// Config holds all configuration for the roadwatch service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Auth configuration
	JWTSecret string

	// Event publishing configuration. Publishing is disabled when AMQPUrl is
	// empty.
	AMQPUrl      string
	AMQPExchange string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "roadwatch"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		AMQPUrl:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "roadwatch.hotspots"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
