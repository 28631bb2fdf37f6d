package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"

	"github.com/pageza/nutrilog/backend/internal/database"
	"github.com/pageza/nutrilog/backend/internal/logger"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "migrations", "Directory containing *.up.sql and *.down.sql files")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if _, err := db.Exec(createMigrationsTable); err != nil {
		log.Fatal("failed to create migrations table", "error", err)
	}

	if *rollback {
		name, err := rollbackLast(db, *dir)
		if err != nil {
			log.Fatal("rollback failed", "error", err)
		}
		log.Info("Rolled back migration", "migration", name)
		return
	}

	applied, err := applyPending(db, *dir, log)
	if err != nil {
		log.Fatal("migration failed", "error", err)
	}
	log.Info("Migrations complete", "applied", applied)
}

func applyPending(db *sql.DB, dir string, log *logger.Logger) (int, error) {
	files, err := database.UpMigrations(dir)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range files {
		var exists bool
		if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", name).Scan(&exists); err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			log.Debug("Skipping migration (already applied)", "migration", name)
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		if err := inTx(db, string(content), "INSERT INTO migrations (name) VALUES ($1)", name); err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		log.Info("Applied migration", "migration", name)
		applied++
	}
	return applied, nil
}

func rollbackLast(db *sql.DB, dir string) (string, error) {
	var name string
	err := db.QueryRow("SELECT name FROM migrations ORDER BY applied_at DESC, id DESC LIMIT 1").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no migrations to rollback")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	downFile := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
	content, err := os.ReadFile(filepath.Join(dir, downFile))
	if err != nil {
		return "", fmt.Errorf("failed to read rollback file %s: %w", downFile, err)
	}
	if err := inTx(db, string(content), "DELETE FROM migrations WHERE name = $1", name); err != nil {
		return "", err
	}
	return name, nil
}

// inTx runs a migration script and its bookkeeping statement atomically.
func inTx(db *sql.DB, script, record, name string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to execute script: %w", err)
	}
	if _, err := tx.Exec(record, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
