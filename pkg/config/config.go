package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings, loaded from environment variables
type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	RedisUsername           string
	RedisPassword           string
	LogLevel                string

	CacheOpTimeout time.Duration
	StoreTimeout   time.Duration

	BatchCountThreshold int
	BatchTimeThreshold  time.Duration
	BatchSweepInterval  time.Duration
}

// Load reads the configuration from the environment. A .env file is applied
// first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "devlink"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisUsername:           getEnv("REDIS_USERNAME", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),

		CacheOpTimeout: getEnvDuration("CACHE_OP_TIMEOUT", 500*time.Millisecond),
		StoreTimeout:   getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		BatchCountThreshold: getEnvInt("BATCH_COUNT_THRESHOLD", 10),
		BatchTimeThreshold:  getEnvDuration("BATCH_TIME_THRESHOLD", 5*time.Minute),
		BatchSweepInterval:  getEnvDuration("BATCH_SWEEP_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("Invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}
