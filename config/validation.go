package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the configuration for the current environment and
// reports every problem at once.
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()

	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "is required")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required for postgres")
		}
		if env == Production && cfg.DBPassword == "" {
			add("db_password", "secret is required in production")
		}
	case "sqlite":
		if env == Production {
			add("DB_DRIVER", "sqlite is not supported in production")
		}
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "is required for sqlite")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		add("jwt_secret", "secret is required")
	}

	if cfg.AnalyzerURL == "" {
		add("ANALYZER_URL", "is required")
	} else if u, err := url.Parse(cfg.AnalyzerURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("ANALYZER_URL", "must be an absolute URL")
	}
	if cfg.MealPlanURL != "" {
		if u, err := url.Parse(cfg.MealPlanURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("MEALPLAN_BASE_URL", "must be an absolute URL")
		}
	}

	p := cfg.Pipeline
	if p.AnalyzerTimeout <= 0 {
		add("ANALYZER_TIMEOUT", "must be positive")
	}
	if p.PersistenceTimeout <= 0 {
		add("PERSISTENCE_TIMEOUT", "must be positive")
	}
	if p.AnalyzerAttempts < 1 {
		add("ANALYZER_ATTEMPTS", "must be at least 1")
	}
	if p.RetryBackoff < 0 {
		add("ANALYZER_RETRY_BACKOFF", "must not be negative")
	}
	if p.MaxImageBytes <= 0 {
		add("MAX_IMAGE_BYTES", "must be positive")
	}
	if cfg.RateLimit.SubmissionsPerHour < 0 {
		add("SUBMISSIONS_PER_HOUR", "must not be negative")
	}

	if len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = e.Error()
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
	}

	return nil
}
