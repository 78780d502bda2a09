package config

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting read from the environment
type Config struct {
	Port    string `env:"PORT,default=8080"`
	GinMode string `env:"GIN_MODE,default=debug"`

	DBDriver string `env:"DB_DRIVER,default=postgres"`
	DBHost   string `env:"DB_HOST,default=localhost"`
	DBUser   string `env:"DB_USER,default=postgres"`
	DBPass   string `env:"DB_PASS,default=postgres"`
	DBName   string `env:"DB_NAME,default=grammable"`
	DBPort   string `env:"DB_PORT,default=5432"`
	DBPath   string `env:"DB_PATH,default=grammable.db"`

	JWTSecret string `env:"JWT_SECRET,default=your-secret-key"`

	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=10485760"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file and decodes the environment into a Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}

	if cfg.JWTSecret == "your-secret-key" {
		logrus.Warn("JWT_SECRET not set, using the default secret (not recommended for production)")
	}

	return &cfg, nil
}

// PostgresDSN builds the connection string for the postgres driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort)
}

// SetupLogger configures the global logrus logger
func SetupLogger(level string, json bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown LOG_LEVEL %q, falling back to info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
