package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envFile    = ".env"
	configFile = "config.yaml"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string `yaml:"server_port"`
	ServerHost string `yaml:"server_host"`

	// Origins allowed to call the API from a browser
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Database configuration
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"-"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_ssl_mode"`
	SQLitePath string `yaml:"sqlite_path"`

	MigrationsDir string `yaml:"migrations_dir"`

	// Redis configuration
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`
	RedisURL      string `yaml:"redis_url"`

	// JWT configuration
	JWTSecret string `yaml:"-"`

	// Upstream services
	AnalyzerURL    string `yaml:"analyzer_url"`
	MealPlanURL    string `yaml:"mealplan_url"`
	MealPlanAPIKey string `yaml:"-"`

	// Image archive
	S3Bucket  string `yaml:"s3_bucket"`
	AWSRegion string `yaml:"aws_region"`

	LogMode string `yaml:"log_mode"`

	Pipeline  PipelineConfig  `yaml:"pipeline"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	AnalyzerTimeout    time.Duration `yaml:"analyzer_timeout"`
	PersistenceTimeout time.Duration `yaml:"persistence_timeout"`
	AnalyzerAttempts   int           `yaml:"analyzer_attempts"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	MaxImageBytes      int64         `yaml:"max_image_bytes"`
	IncludeUSDA        bool          `yaml:"include_usda"`
}

// RateLimitConfig bounds food log submissions per user. Zero disables the limit.
type RateLimitConfig struct {
	SubmissionsPerHour int `yaml:"submissions_per_hour"`
}

// Defaults returns the configuration used before any file or environment overrides.
func Defaults() *Config {
	return &Config{
		ServerPort:    "8080",
		ServerHost:    "0.0.0.0",
		DBDriver:      "postgres",
		DBHost:        "localhost",
		DBPort:        "5432",
		DBUser:        "postgres",
		DBName:        "nutrilog",
		DBSSLMode:     "disable",
		SQLitePath:    "nutrilog.db",
		MigrationsDir: "migrations",
		RedisHost:     "localhost",
		RedisPort:     "6379",
		AnalyzerURL:   "http://localhost:8000",
		LogMode:       "development",

		CORSAllowedOrigins: []string{"http://localhost:5173", "http://frontend:5173"},

		Pipeline: PipelineConfig{
			AnalyzerTimeout:    30 * time.Second,
			PersistenceTimeout: 10 * time.Second,
			AnalyzerAttempts:   2,
			RetryBackoff:       500 * time.Millisecond,
			MaxImageBytes:      10 << 20,
			IncludeUSDA:        true,
		},
		RateLimit: RateLimitConfig{
			SubmissionsPerHour: 120,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional config.yaml,
// the environment and Docker secrets, in that order of precedence.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(envFile)

	cfg := Defaults()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment configuration: %w", err)
	}
	loadSecrets(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	setString(&cfg.ServerPort, "SERVER_PORT")
	setString(&cfg.ServerHost, "SERVER_HOST")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DBHost, "DB_HOST")
	setString(&cfg.DBPort, "DB_PORT")
	setString(&cfg.DBUser, "DB_USER")
	setString(&cfg.DBName, "DB_NAME")
	setString(&cfg.DBSSLMode, "DB_SSL_MODE")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.MigrationsDir, "MIGRATIONS_DIR")
	setString(&cfg.RedisHost, "REDIS_HOST")
	setString(&cfg.RedisPort, "REDIS_PORT")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.AnalyzerURL, "ANALYZER_URL")
	setString(&cfg.MealPlanURL, "MEALPLAN_BASE_URL")
	setString(&cfg.S3Bucket, "S3_BUCKET_NAME")
	setString(&cfg.AWSRegion, "AWS_REGION")
	setString(&cfg.LogMode, "LOG_MODE")
	setList(&cfg.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	collect(setInt(&cfg.RedisDB, "REDIS_DB"))
	collect(setInt(&cfg.Pipeline.AnalyzerAttempts, "ANALYZER_ATTEMPTS"))
	collect(setInt(&cfg.RateLimit.SubmissionsPerHour, "SUBMISSIONS_PER_HOUR"))
	collect(setDuration(&cfg.Pipeline.AnalyzerTimeout, "ANALYZER_TIMEOUT"))
	collect(setDuration(&cfg.Pipeline.PersistenceTimeout, "PERSISTENCE_TIMEOUT"))
	collect(setDuration(&cfg.Pipeline.RetryBackoff, "ANALYZER_RETRY_BACKOFF"))
	collect(setBool(&cfg.Pipeline.IncludeUSDA, "ANALYZER_INCLUDE_USDA"))
	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			collect(fmt.Errorf("MAX_IMAGE_BYTES: %w", err))
		} else {
			cfg.Pipeline.MaxImageBytes = n
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// loadSecrets resolves sensitive values from the environment first and
// Docker secrets second.
func loadSecrets(cfg *Config) {
	cfg.DBPassword = secretValue("DB_PASSWORD", "db_password")
	cfg.RedisPassword = secretValue("REDIS_PASSWORD", "redis_password")
	cfg.JWTSecret = secretValue("JWT_SECRET", "jwt_secret")
	cfg.MealPlanAPIKey = secretValue("MEALPLAN_API_KEY", "mealplan_api_key")
}

func secretValue(envKey, secretName string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return readSecret(secretName)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// findConfigFile walks up from the working directory looking for config.yaml.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, configFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList reads a comma separated list, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}
