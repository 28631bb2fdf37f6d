package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CI", "")
	t.Setenv("ENV", "test")
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadConfig(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "nutri")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "nutrilog_test")
	t.Setenv("ANALYZER_URL", "http://analyzer:8000")
	t.Setenv("ANALYZER_TIMEOUT", "5s")
	t.Setenv("ANALYZER_ATTEMPTS", "3")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.nutrilog.io, ,http://localhost:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "6543", cfg.DBPort)
	assert.Equal(t, "nutri", cfg.DBUser)
	assert.Equal(t, "pw", cfg.DBPassword)
	assert.Equal(t, "nutrilog_test", cfg.DBName)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "http://analyzer:8000", cfg.AnalyzerURL)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.AnalyzerTimeout)
	assert.Equal(t, 3, cfg.Pipeline.AnalyzerAttempts)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, []string{"https://app.nutrilog.io", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigWithDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, int64(10<<20), cfg.Pipeline.MaxImageBytes)
	assert.Equal(t, 2, cfg.Pipeline.AnalyzerAttempts)
	assert.True(t, cfg.Pipeline.IncludeUSDA)
	assert.Equal(t, []string{"http://localhost:5173", "http://frontend:5173"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigFromYAML(t *testing.T) {
	setBaseEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := `
db_driver: sqlite
sqlite_path: /tmp/nutrilog.db
analyzer_url: http://analyzer.local:9000
pipeline:
  analyzer_timeout: 12s
  retry_backoff: 250ms
  analyzer_attempts: 4
rate_limit:
  submissions_per_hour: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ANALYZER_ATTEMPTS", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/nutrilog.db", cfg.SQLitePath)
	assert.Equal(t, "http://analyzer.local:9000", cfg.AnalyzerURL)
	assert.Equal(t, 12*time.Second, cfg.Pipeline.AnalyzerTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.RetryBackoff)
	// environment wins over the file
	assert.Equal(t, 1, cfg.Pipeline.AnalyzerAttempts)
	assert.Equal(t, 30, cfg.RateLimit.SubmissionsPerHour)
}

func TestLoadConfigReadsDockerSecrets(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	dir := t.TempDir()
	t.Setenv("SECRETS_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("from-secret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mealplan_api_key"), []byte("mp-key"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-secret", cfg.JWTSecret)
	assert.Equal(t, "mp-key", cfg.MealPlanAPIKey)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ANALYZER_TIMEOUT", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYZER_TIMEOUT")
}

func TestValidateConfigCollectsAllErrors(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("ENV", "production")

	cfg := Defaults()
	cfg.DBDriver = "sqlite"
	cfg.AnalyzerURL = "not a url"
	cfg.Pipeline.AnalyzerAttempts = 0

	err := ValidateConfig(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "sqlite is not supported in production")
	assert.Contains(t, msg, "jwt_secret")
	assert.Contains(t, msg, "ANALYZER_URL")
	assert.Contains(t, msg, "ANALYZER_ATTEMPTS")
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("CI", "true")
	assert.Equal(t, CI, GetEnvironment())

	t.Setenv("CI", "")
	t.Setenv("ENV", "production")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())

	t.Setenv("ENV", "")
	assert.Equal(t, Development, GetEnvironment())
}
