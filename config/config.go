package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port    string
	GoEnv   string
	GinMode string

	DBDriver              string
	DatabaseURL           string
	DBMaxOpenConns        int
	DBMaxIdleConns        int
	DBConnMaxLifetimeMins int

	JWTSecret string
	JWTTTL    time.Duration
	JWTIssuer string

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	DefaultReservationDuration time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	KafkaBrokers []string
	KafkaTopic   string
	EventBuffer  int

	StorageBackend     string
	UploadDir          string
	PublicBaseURL      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load reads .env.<GO_ENV> (falling back to .env) and then the process
// environment.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() (*Config, error) {
	var parseErrs []string

	config := &Config{
		Port:    getEnv("PORT", "8080"),
		GoEnv:   getEnv("GO_ENV", "development"),
		GinMode: getEnv("GIN_MODE", "debug"),

		DBDriver:              strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL:           getEnv("DATABASE_URL", "reservations.db"),
		DBMaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 25, &parseErrs),
		DBMaxIdleConns:        getEnvInt("DB_MAX_IDLE_CONNS", 5, &parseErrs),
		DBConnMaxLifetimeMins: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30, &parseErrs),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 15*time.Minute, &parseErrs),
		JWTIssuer: getEnv("JWT_ISSUER", "restaurant-reservations"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20, &parseErrs),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40, &parseErrs),

		DefaultReservationDuration: time.Duration(getEnvFloat("DEFAULT_RESERVATION_HOURS", 2, &parseErrs) * float64(time.Hour)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "reservations.events"),
		EventBuffer:  getEnvInt("EVENT_BUFFER", 256, &parseErrs),

		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		UploadDir:          getEnv("UPLOAD_DIR", "public/uploads"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "/uploads"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	if len(parseErrs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(parseErrs, "; "))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DefaultReservationDuration <= 0 {
		return fmt.Errorf("DEFAULT_RESERVATION_HOURS must be positive")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.AWSS3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64, errs *[]string) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return defaultValue
	}
	return v
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
