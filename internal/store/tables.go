package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/schema"
)

// sqlType maps a schema column type to a SQLite column type.
func sqlType(columnType string) string {
	switch columnType {
	case "int", "integer", "bool", "boolean":
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Migrate creates a table for every entity in the catalog. Existing tables
// are left alone.
func (s *Store) Migrate(ctx context.Context, catalog *schema.Catalog) error {
	for _, e := range catalog.Entities() {
		if _, err := s.db.ExecContext(ctx, createTableSQL(e)); err != nil {
			return fmt.Errorf("create table %s: %w", e.Table(), err)
		}
	}
	return nil
}

func createTableSQL(e *schema.Entity) string {
	pk := e.PrimaryKey()
	cols := make([]string, 0, len(e.Spec().Columns)+1)
	hasPK := false
	for _, c := range e.Spec().Columns {
		def := fmt.Sprintf("%s %s", c.Name, sqlType(c.Type))
		if c.Name == pk {
			def += " PRIMARY KEY"
			hasPK = true
		}
		cols = append(cols, def)
	}
	if !hasPK {
		cols = append([]string{pk + " INTEGER PRIMARY KEY"}, cols...)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", e.Table(), strings.Join(cols, ", "))
}

// Insert adds one row to the entity's table. Columns are written in sorted
// order; every key must be a declared column or the primary key.
func (s *Store) Insert(ctx context.Context, e *schema.Entity, row map[string]ir.IRValue) error {
	declared := map[string]bool{e.PrimaryKey(): true}
	for _, c := range e.Spec().Columns {
		declared[c.Name] = true
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		if !declared[col] {
			return fmt.Errorf("%s has no column %q", e.Name(), col)
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	params := make([]any, len(cols))
	for i, col := range cols {
		v, err := ir.ToGo(row[col])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", e.Name(), col, err)
		}
		if _, ok := v.([]any); ok {
			return fmt.Errorf("%s.%s: arrays cannot be stored", e.Name(), col)
		}
		params[i] = v
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", e.Table(), strings.Join(cols, ", "), marks)
	if _, err := s.db.ExecContext(ctx, query, params...); err != nil {
		return fmt.Errorf("insert into %s: %w", e.Table(), err)
	}
	return nil
}
