// Command realtyctl runs the operational tasks for a realty database:
// migrations, demo data, admin accounts, backups and upstream checks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/pkg/ollama"
)

var version = "dev"

const usage = `usage: realtyctl [-config file] [-env file] <command> [flags]

commands:
  migrate                      apply migrations and seed schemas/templates
  version                      print the applied schema versions
  schema                       list tables and columns
  seed-demo                    insert demo builders and projects (idempotent)
  admin create                 create an admin (-email -name -password)
  admin reset-password         set an admin password (-email -password)
  backup [-to file]            write a consistent copy of the database
  restore -from file           replace the database file with a backup
  dead-letters [-limit n]      list jobs that exhausted their attempts
  ai-ping                      check the configured Ollama instance
`

func main() {
	fs := flag.NewFlagSet("realtyctl", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config YAML file")
	envFile := fs.String("env", ".env", "Optional dotenv file")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env file: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	ollama.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, fs.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "realtyctl: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown command; run realtyctl -h")

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]

	// commands that work on the file rather than an open connection
	switch cmd {
	case "restore":
		return restoreCmd(cfg, rest, out)
	case "ai-ping":
		return aiPingCmd(ctx, cfg, out)
	}

	d, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer d.Close()

	switch cmd {
	case "migrate":
		return migrateCmd(ctx, d, out)
	case "version":
		return versionCmd(ctx, d, out)
	case "schema":
		return schemaCmd(ctx, d, out)
	case "seed-demo":
		return seedDemoCmd(ctx, d, out)
	case "admin":
		return adminCmd(ctx, d, rest, out)
	case "backup":
		return backupCmd(ctx, d, cfg.DatabasePath, rest, out)
	case "dead-letters":
		return deadLettersCmd(ctx, d, rest, out)
	}
	return errUsage
}
