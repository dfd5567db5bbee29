// Package migrations embeds the SQL schema of the postgres lookup source.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var FS embed.FS

// Execer is the subset of *sql.DB used to apply migrations.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Up executes every *.up.sql migration in name order. Migrations are written
// to be idempotent, so Up may run against an already migrated database.
func Up(ctx context.Context, db Execer) ([]string, error) {
	return apply(ctx, db, FS, ".up.sql")
}

// Down executes every *.down.sql migration in reverse name order.
func Down(ctx context.Context, db Execer) ([]string, error) {
	return apply(ctx, db, FS, ".down.sql")
}

func apply(ctx context.Context, db Execer, fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if suffix == ".down.sql" {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return files, nil
}
