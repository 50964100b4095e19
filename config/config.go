package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Env       string
	Port      string
	BaseURL   string
	DBURL     string
	RedisAddr string

	// JWTAlgorithm selects the signing method: HS256 (shared secret) or
	// RS256 (PEM key pair).
	JWTAlgorithm  string
	JWTSecret     string
	JWTPrivateKey string
	JWTPublicKey  string

	// TTLs are in seconds.
	AccessTokenTTL  int
	RefreshTokenTTL int
}

func Load() *Config {
	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		DBURL:           mustGetEnv("DB_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		JWTAlgorithm:    getEnv("JWT_ALGORITHM", "HS256"),
		AccessTokenTTL:  getEnvAsInt("ACCESS_TOKEN_TTL", 900),
		RefreshTokenTTL: getEnvAsInt("REFRESH_TOKEN_TTL", 604800),
	}

	switch cfg.JWTAlgorithm {
	case "RS256":
		cfg.JWTPrivateKey = mustGetEnv("JWT_PRIVATE_KEY")
		cfg.JWTPublicKey = mustGetEnv("JWT_PUBLIC_KEY")
	default:
		cfg.JWTSecret = mustGetEnv("JWT_SECRET")
	}

	return cfg
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
