// Package catalog discovers SQLite databases on disk and renders the two
// schema views the pipeline needs: the cross-database overview and the
// per-database CREATE TABLE text.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/querypilot/query-core/internal/schemastore"
)

// Loader scans a data directory laid out as <root>/<name>/<name>.sqlite.
type Loader struct {
	Root string
}

// DatabasePath returns the expected file location for a database name.
func (l *Loader) DatabasePath(name string) string {
	return filepath.Join(l.Root, name, name+".sqlite")
}

// Discover lists database names whose file exists under the root.
func (l *Loader) Discover() ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("catalog: read data dir %s: %w", l.Root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(l.DatabasePath(e.Name())); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// BuildCatalog opens every discovered database and assembles the overview
// blob {database -> {table -> [columns]}}.
func (l *Loader) BuildCatalog(ctx context.Context) (schemastore.Catalog, error) {
	names, err := l.Discover()
	if err != nil {
		return nil, err
	}
	cat := make(schemastore.Catalog, len(names))
	for _, name := range names {
		tables, err := l.tables(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("catalog: inspect %s: %w", name, err)
		}
		cat[name] = tables
	}
	return cat, nil
}

func (l *Loader) open(name string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", l.DatabasePath(name)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", name, err)
	}
	return db, nil
}

func (l *Loader) tables(ctx context.Context, name string) (map[string][]string, error) {
	db, err := l.open(name)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableNames []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tableNames = append(tableNames, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(tableNames))
	for _, t := range tableNames {
		cols, err := columns(ctx, db, t)
		if err != nil {
			return nil, err
		}
		out[t] = cols
	}
	return out, nil
}

func columns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// DetailedSchema renders the CREATE TABLE statements recorded in
// sqlite_master, which is what the SQL generation prompt receives.
func (l *Loader) DetailedSchema(ctx context.Context, name string) (string, error) {
	db, err := l.open(name)
	if err != nil {
		return "", err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("catalog: read schema for %s: %w", name, err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", err
		}
		stmts = append(stmts, strings.TrimSpace(stmt)+";")
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(stmts) == 0 {
		return "", fmt.Errorf("catalog: database %s has no tables", name)
	}
	return strings.Join(stmts, "\n\n"), nil
}
