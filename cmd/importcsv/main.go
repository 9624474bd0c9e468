package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ecosense/internal/bridge/repository"
	"ecosense/internal/bridge/types"
	"ecosense/internal/config"
	"ecosense/internal/importer"
	"ecosense/internal/logging"
	"ecosense/internal/storage"
	"ecosense/internal/storage/migrate"
)

var version = "dev"
var appName = "ecosense-importcsv"

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <kind> <file>\n  kind  temperature|humidity (temperatura|umidade)\n", os.Args[0])
		os.Exit(1)
	}
	kind, err := types.ParseKind(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv(appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, cfg, kind, os.Args[2])
	if err != nil {
		slog.Error("import failed", "err", err, "imported", sum.Imported)
		os.Exit(1)
	}

	fmt.Printf("%s: %d rows, %d imported, %d skipped\n", os.Args[2], sum.Rows, sum.Imported, sum.Skipped)
}

func run(ctx context.Context, cfg config.Config, kind types.Kind, path string) (importer.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Summary{}, err
	}
	defer f.Close()

	dbConn, err := storage.Open(cfg, slog.Default())
	if err != nil {
		return importer.Summary{}, err
	}
	defer func() {
		if closeErr := storage.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	// The importer may be the first thing to touch a fresh database.
	if _, err := migrate.Run(ctx, dbConn, slog.Default()); err != nil {
		return importer.Summary{}, err
	}

	slog.Info("importing", "file", path, "kind", kind, "sqlite_path", cfg.SQLitePath)
	return importer.New(repository.NewRepository(dbConn), slog.Default()).Import(ctx, f, kind)
}
