package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// migrationLockID serializes schema changes across resolver instances.
const migrationLockID int64 = 0x636F6D6D726573 // "commres" as int64

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type migrationFile struct {
	version int
	name    string
}

// discoverMigrations lists NNNN_description.sql files in version order.
// Files that do not follow the naming scheme are skipped with a warning.
func discoverMigrations(dir string, logger *zap.Logger) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, found := strings.Cut(e.Name(), "_")
		if !found {
			continue
		}
		ver, err := strconv.Atoi(prefix)
		if err != nil {
			logger.Warn("ignoring migration file without numeric prefix",
				zap.String("file", e.Name()))
			continue
		}
		files = append(files, migrationFile{version: ver, name: e.Name()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// RunMigrations applies any pending schema migrations from migrationsDir.
// An advisory lock keeps concurrent resolver instances from racing; each
// migration runs inside its own transaction.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string, logger *zap.Logger) error {
	// The advisory lock is session-scoped, so hold one connection for
	// the whole run.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)

	if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	files, err := discoverMigrations(migrationsDir, logger)
	if err != nil {
		return err
	}

	applied := make(map[int]bool)
	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("querying applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating migration rows: %w", err)
	}

	var ran int
	for _, f := range files {
		if applied[f.version] {
			continue
		}

		ddl, err := os.ReadFile(filepath.Join(migrationsDir, f.name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", f.name, err)
		}

		logger.Info("applying schema migration",
			zap.Int("version", f.version),
			zap.String("file", f.name))

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", f.version, err)
		}
		if _, err := tx.Exec(ctx, string(ddl)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("executing migration %d (%s): %w", f.version, f.name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", f.version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("recording migration %d: %w", f.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %d: %w", f.version, err)
		}
		ran++
	}

	logger.Info("schema up to date",
		zap.Int("known", len(files)),
		zap.Int("applied_now", ran))

	return nil
}
