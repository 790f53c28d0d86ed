package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"sync"

	"github.com/pressly/goose/v3"

	"resumegen-api/internal/shared/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// MigrateCommand is one of the operations cmd/migrate exposes.
type MigrateCommand string

const (
	MigrateUp      MigrateCommand = "up"
	MigrateDown    MigrateCommand = "down"
	MigrateStatus  MigrateCommand = "status"
	MigrateVersion MigrateCommand = "version"
)

func (c MigrateCommand) Valid() bool {
	switch c {
	case MigrateUp, MigrateDown, MigrateStatus, MigrateVersion:
		return true
	}
	return false
}

var (
	gooseOnce sync.Once
	gooseErr  error
)

func setupGoose() error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrationFiles)
		goose.SetLogger(gooseLogger{})
		gooseErr = goose.SetDialect("postgres")
	})
	return gooseErr
}

// RunMigrations brings the schema to the newest embedded version. A nil
// database is a no-op so memory-backed dev runs can call it unconditionally.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	return Migrate(ctx, database, MigrateUp)
}

// Migrate runs cmd against database and logs the schema version before and after.
func Migrate(ctx context.Context, database *sql.DB, cmd MigrateCommand) error {
	if !cmd.Valid() {
		return fmt.Errorf("unknown migrate command %q", cmd)
	}
	if database == nil {
		return nil
	}
	if err := setupGoose(); err != nil {
		return err
	}
	from, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch cmd {
	case MigrateUp:
		err = goose.UpContext(ctx, database, migrationDir)
	case MigrateDown:
		err = goose.DownContext(ctx, database, migrationDir)
	case MigrateStatus:
		err = goose.StatusContext(ctx, database, migrationDir)
	case MigrateVersion:
		telemetry.Info("db.schema_version", map[string]any{"version": from, "latest": LatestVersion()})
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}

	to, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	telemetry.Info("db.migrated", map[string]any{"command": string(cmd), "from": from, "to": to})
	return nil
}

// EmbeddedVersions lists the migration versions compiled into the binary, in order.
func EmbeddedVersions() ([]int64, error) {
	if err := setupGoose(); err != nil {
		return nil, err
	}
	migrations, err := goose.CollectMigrations(migrationDir, 0, math.MaxInt64)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, m.Version)
	}
	return out, nil
}

// LatestVersion is the newest embedded migration, or 0 if none are found.
func LatestVersion() int64 {
	versions, err := EmbeddedVersions()
	if err != nil || len(versions) == 0 {
		return 0
	}
	return versions[len(versions)-1]
}

// gooseLogger routes goose's progress lines through telemetry.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	telemetry.Info("db.goose", map[string]any{"message": fmt.Sprintf(format, v...)})
}

func (gooseLogger) Fatalf(format string, v ...any) {
	telemetry.Error("db.goose_fatal", map[string]any{"message": fmt.Sprintf(format, v...)})
}
