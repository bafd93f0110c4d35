package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPPort        string        `validate:"required,numeric"`
	APIBaseURL      string        `validate:"required,url"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	StorageBackend string `validate:"oneof=memory redis mongo"`
	RedisAddr      string `validate:"required_if=StorageBackend redis"`
	RedisPassword  string
	MongoURI       string `validate:"required_if=StorageBackend mongo"`
	MongoDBName    string `validate:"required_if=StorageBackend mongo"`

	// Empty KafkaBrokers disables the checkout poller.
	KafkaBrokers    []string
	CheckoutTopic   string `validate:"required_with=KafkaBrokers"`
	CheckoutGroupID string `validate:"required_with=KafkaBrokers"`
	UserID          string

	LogLevel    string `validate:"oneof=debug info warn error"`
	Development bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:3000/api"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDBName:     getEnv("MONGO_DB", "storefront"),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		CheckoutTopic:   getEnv("CHECKOUT_TOPIC", "checkout-outbox"),
		CheckoutGroupID: getEnv("CHECKOUT_GROUP_ID", "storefront-consumer"),
		UserID:          getEnv("USER_ID", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Development:     getBool("DEVELOPMENT", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
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
