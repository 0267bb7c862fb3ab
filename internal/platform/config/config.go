package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte

	// SessionTTL is the fixed lifetime of a bearer session (24h per policy).
	SessionTTL time.Duration

	// Capacity caps for the two registries.
	ActiveMembersMax int
	WaitlistMax      int

	// StorageBackend selects the registry implementation: "memory" (default)
	// or "postgres".
	StorageBackend string
	// SessionBackend selects the session registry: "memory" (default) or "redis".
	SessionBackend string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional bootstrap super admin, created at startup when the credential
	// store is empty. Without it the register-admin endpoint is unreachable.
	SeedAdminEmail    string
	SeedAdminPassword string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:          getEnv("API_PORT", "8080"),
		JWTKey:           []byte(getEnv("JWT_SECRET", "defaultsecret")),
		SessionTTL:       time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		ActiveMembersMax: getEnvAsInt("ACTIVE_MEMBERS_MAX", 200),
		WaitlistMax:      getEnvAsInt("WAITLIST_MAX", 100),
		StorageBackend:   getEnv("STORAGE_BACKEND", "memory"),
		SessionBackend:   getEnv("SESSION_BACKEND", "memory"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "rangeclub_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
