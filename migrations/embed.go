// Package migrations embeds the SQL schema of the chat service.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Files holds every .sql file of this directory; they run in lexical order (001, 002, ...).
//
//go:embed *.sql
var Files embed.FS

// Apply runs all embedded migrations. Each file must be idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	names, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := Files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return nil, fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return names, nil
}
