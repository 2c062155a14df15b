package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// ApplyMigrations executes SQL files against the provided pool in lexicographical order.
// Every file is idempotent and runs in its own transaction.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, filesystem fs.FS, logger *zerolog.Logger) error {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(filesystem, entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(sqlBytes))
			return err
		})
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
		logger.Debug().Str("file", entry.Name()).Msg("migration applied")
	}
	return nil
}
