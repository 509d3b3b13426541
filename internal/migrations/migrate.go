package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/Simplici0/sweetcost/internal/log"
)

func newProvider(db *sql.DB, migrationsDir string) (*goose.Provider, error) {
	if _, err := os.Stat(migrationsDir); err != nil {
		return nil, fmt.Errorf("migrations directory %s: %w", migrationsDir, err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, os.DirFS(migrationsDir))
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending SQL migration found in migrationsDir.
func Up(ctx context.Context, db *sql.DB, migrationsDir string) error {
	provider, err := newProvider(db, migrationsDir)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	for _, res := range results {
		log.Info(ctx, "migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB, migrationsDir string) (int64, error) {
	provider, err := newProvider(db, migrationsDir)
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read goose db version: %w", err)
	}
	return version, nil
}
