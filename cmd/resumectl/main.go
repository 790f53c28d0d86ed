package main

// Operator tooling for prompts, guard checks and one-off generations:
//   go run ./cmd/resumectl prompt --input cv.txt --template technical
//   go run ./cmd/resumectl guard --kind chat "make my summary shorter"
//   go run ./cmd/resumectl generate --input cv.pdf --out resume.json

import (
	"os"

	"resumegen-api/internal/shared/config"
	"resumegen-api/internal/shared/telemetry"
)

func main() {
	// Logs go to stderr so stdout stays pipeable.
	restore := telemetry.SetOutput(os.Stderr)
	defer restore()
	cfg := config.Load()

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
