package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Images       ImageConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
	CORSOrigins           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Service     string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AuthRateLimitPerMin   int
}

// Image storage backends.
const (
	ImageBackendMemory = "memory"
	ImageBackendS3     = "s3"
)

// ImageConfig selects and configures the remote image host.
type ImageConfig struct {
	Backend          string
	Bucket           string
	Region           string
	Prefix           string
	Endpoint         string
	PublicBaseURL    string
	AccessKeyID      string
	SecretAccessKey  string
	UsePathStyle     bool
	UploadTimeoutSec int
}

// Notification backends.
const (
	NotifyBackendLog     = "log"
	NotifyBackendEmailJS = "emailjs"
)

// NotificationConfig configures adoption decision emails.
type NotificationConfig struct {
	Backend         string
	EmailFrom       string
	EmailJSURL      string
	EmailJSService  string
	EmailJSTemplate string
	EmailJSPublic   string
	EmailJSPrivate  string
	TimeoutSeconds  int
	Workers         int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "pet-adoption-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 6*1024*1024),
			CORSOrigins:           getEnv("CORS_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			QueueKey: getEnv("REDIS_NOTIFY_QUEUE_KEY", "adoption:notifications"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Service:     getEnv("APP_NAME", "pet-adoption-service"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("JWT_TTL_MINUTES", 7*24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AuthRateLimitPerMin:   getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Images: ImageConfig{
			Backend:          strings.ToLower(getEnv("IMAGE_BACKEND", ImageBackendMemory)),
			Bucket:           os.Getenv("IMAGE_S3_BUCKET"),
			Region:           getEnv("IMAGE_S3_REGION", "us-east-1"),
			Prefix:           getEnv("IMAGE_S3_PREFIX", "pawpal"),
			Endpoint:         os.Getenv("IMAGE_S3_ENDPOINT"),
			PublicBaseURL:    os.Getenv("IMAGE_PUBLIC_BASE_URL"),
			AccessKeyID:      os.Getenv("IMAGE_S3_ACCESS_KEY_ID"),
			SecretAccessKey:  os.Getenv("IMAGE_S3_SECRET_ACCESS_KEY"),
			UsePathStyle:     getEnvAsBool("IMAGE_S3_PATH_STYLE", false),
			UploadTimeoutSec: getEnvAsInt("IMAGE_UPLOAD_TIMEOUT_SECONDS", 20),
		},
		Notification: NotificationConfig{
			Backend:         strings.ToLower(getEnv("NOTIFY_BACKEND", NotifyBackendLog)),
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailJSURL:      getEnv("EMAILJS_API_URL", "https://api.emailjs.com/api/v1.0/email/send"),
			EmailJSService:  os.Getenv("EMAILJS_SERVICE_ID"),
			EmailJSTemplate: os.Getenv("EMAILJS_TEMPLATE_ID"),
			EmailJSPublic:   os.Getenv("EMAILJS_PUBLIC_KEY"),
			EmailJSPrivate:  os.Getenv("EMAILJS_PRIVATE_KEY"),
			TimeoutSeconds:  getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
			Workers:         getEnvAsInt("NOTIFY_WORKERS", 2),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects backend selections that lack their required settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Images.Backend {
	case ImageBackendMemory:
	case ImageBackendS3:
		if c.Images.Bucket == "" {
			errs = append(errs, errors.New("IMAGE_S3_BUCKET required for s3 image backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_BACKEND %q", c.Images.Backend))
	}

	switch c.Notification.Backend {
	case NotifyBackendLog:
	case NotifyBackendEmailJS:
		if c.Notification.EmailJSService == "" || c.Notification.EmailJSTemplate == "" {
			errs = append(errs, errors.New("EMAILJS_SERVICE_ID and EMAILJS_TEMPLATE_ID required for emailjs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notification.Backend))
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UploadTimeout bounds a single image host call.
func (i ImageConfig) UploadTimeout() time.Duration {
	if i.UploadTimeoutSec <= 0 {
		return 20 * time.Second
	}
	return time.Duration(i.UploadTimeoutSec) * time.Second
}

// Timeout bounds a single email delivery attempt.
func (n NotificationConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
