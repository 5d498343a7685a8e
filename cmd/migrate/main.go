// Command migrate applies the SQL schema migrations under ./migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"crownkeys/internal/platform/config"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version")
		dir     = flag.String("dir", "./migrations", "Migrations directory")
		steps   = flag.Int("steps", 0, "Number of migration steps (0 = all)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	m, cleanup, err := newMigrator(*dir, cfg.DatabaseURL)
	if err != nil {
		slog.Error("migrator setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	switch *command {
	case "up":
		err = run(m, *steps)
	case "down":
		err = run(m, -max(*steps, 1))
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied yet")
			return
		}
		if err == nil {
			fmt.Printf("version %d (dirty: %v)\n", v, dirty)
			if dirty {
				os.Exit(1)
			}
			return
		}
	default:
		slog.Error("unknown command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("migration failed", "command", *command, "error", err)
		os.Exit(1)
	}
	slog.Info("migration complete", "command", *command)
}

// run applies n steps; n = 0 means all the way up.
func run(m *migrate.Migrate, n int) error {
	var err error
	if n == 0 {
		err = m.Up()
	} else {
		err = m.Steps(n)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func newMigrator(dir, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database ping: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, func() { db.Close() }, nil
}
