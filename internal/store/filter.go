package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/condscope/internal/queryir"
	"github.com/roach88/condscope/internal/querysql"
	"github.com/roach88/condscope/internal/schema"
)

// Count returns how many distinct root rows satisfy frag.
func (s *Store) Count(ctx context.Context, root *schema.Entity, frag queryir.Fragment) (int64, error) {
	q, err := querysql.NewSQLCompiler().Count(root, frag)
	if err != nil {
		return 0, err
	}
	slog.Debug("count", "entity", root.Name(), "sql", q.SQL, "params", len(q.Params))

	var n int64
	if err := s.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", root.Name(), err)
	}
	return n, nil
}

// IDs returns the primary keys of the root rows that satisfy frag in
// ascending order. Primary keys must be integers.
func (s *Store) IDs(ctx context.Context, root *schema.Entity, frag queryir.Fragment) ([]int64, error) {
	q, err := querysql.NewSQLCompiler().Select(root, frag)
	if err != nil {
		return nil, err
	}
	slog.Debug("select", "entity", root.Name(), "sql", q.SQL, "params", len(q.Params))

	rows, err := s.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", root.Name(), err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", root.Name(), err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", root.Name(), err)
	}
	return ids, nil
}
