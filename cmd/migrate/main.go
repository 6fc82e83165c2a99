package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"hqbot/internal/repository"
	"hqbot/pkg/config"
	"hqbot/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}
	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	db, err := sql.Open("pgx", cfg.Repo.DSN())
	if err != nil {
		log.Error("failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(db, os.Args[1:], log); err != nil {
		log.Error("%s failed: %v", os.Args[1], err)
		db.Close()
		os.Exit(1)
	}
}

func run(db *sql.DB, args []string, log *logger.Logger) error {
	m, err := repository.NewMigrator(db)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		log.Info("Running migrations...")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info("Migrations applied successfully")

	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}
		log.Info("Rolling back %d migration(s)...", steps)
		if err := m.Steps(-steps); err != nil {
			return err
		}
		log.Info("Rollback completed successfully")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("No migration applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		if dirty {
			log.Warn("Current version: %d (DIRTY - needs manual intervention)", version)
		} else {
			log.Info("Current version: %d", version)
		}

	case "force":
		if len(args) < 2 {
			return errors.New("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := m.Force(version); err != nil {
			return err
		}
		log.Info("Forced version %d", version)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func printUsage() {
	fmt.Println("Chifumi database migrations")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate up                Apply all pending migrations")
	fmt.Println("  migrate down [n]          Roll back the last n migrations (default 1)")
	fmt.Println("  migrate version           Show the current schema version")
	fmt.Println("  migrate force <version>   Mark a version as clean after a failed run")
	fmt.Println()
	fmt.Println("Connection settings come from REPO_DB_HOST, REPO_DB_PORT, REPO_DB_USERNAME,")
	fmt.Println("REPO_DB_PASSWORD, REPO_DB_NAME and REPO_DB_SSLMODE.")
}
