package main

// Run database migrations:
//   go run ./cmd/migrate            (up)
//   go run ./cmd/migrate status
//   go run ./cmd/migrate down

import (
	"context"
	"os"

	"resumegen-api/internal/shared/config"
	"resumegen-api/internal/shared/storage/db"
	"resumegen-api/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogOptions())
	defer telemetry.Sync()
	ctx := context.Background()

	command := db.MigrateUp
	if len(os.Args) > 1 {
		command = db.MigrateCommand(os.Args[1])
	}
	if !command.Valid() {
		telemetry.Error("migrate.unknown_command", map[string]any{"command": string(command)})
		os.Exit(2)
	}

	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.missing_database_url", nil)
		os.Exit(1)
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": string(command), "error": err})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.complete", map[string]any{"command": string(command)})
}
