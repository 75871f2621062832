// Package migrate applies the embedded schema migrations in filename order.
// Applied versions are tracked in schema_migrations, so Up is safe to run on
// every server start.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/example/pickup-scheduler/internal/db"
)

//go:embed *.sql
var migrations embed.FS

func Up(ctx context.Context, d *db.DB) error {
	files, err := pending(ctx, d)
	if err != nil {
		return err
	}
	for _, name := range files {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("migrate: read %s: %w", name, err)
		}
		if err := d.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("migrate: apply %s: %w", name, err)
		}
		if err := d.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("migrate: record %s: %w", name, err)
		}
	}
	return nil
}

// pending ensures the tracking table exists and returns unapplied migration
// filenames in sorted order.
func pending(ctx context.Context, d *db.DB) ([]string, error) {
	if err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return nil, fmt.Errorf("migrate: ensure tracking table: %w", err)
	}

	entries, err := migrations.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		var applied bool
		err := d.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, e.Name()).Scan(&applied)
		if err != nil {
			return nil, fmt.Errorf("migrate: check %s: %w", e.Name(), err)
		}
		if !applied {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
