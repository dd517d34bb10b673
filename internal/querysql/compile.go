package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
	"github.com/roach88/condscope/internal/schema"
)

// SQLCompiler compiles a root entity plus a Fragment to parameterized SQL
// for SQLite.
//
// Every SELECT carries an ORDER BY on the root primary key so results are
// deterministic. Values are always bound as ? parameters, never
// interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Query is a compiled statement.
type Query struct {
	SQL    string
	Params []any
}

// Select compiles a query returning the distinct primary keys of root rows
// that satisfy frag.
func (c *SQLCompiler) Select(root *schema.Entity, frag queryir.Fragment) (Query, error) {
	from, where, params, err := c.body(root, frag)
	if err != nil {
		return Query{}, err
	}
	pk := root.Table() + "." + root.PrimaryKey()
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s%s ORDER BY %s COLLATE BINARY ASC", pk, from, where, pk)
	return Query{SQL: sql, Params: params}, nil
}

// Count compiles a query counting the distinct root rows that satisfy frag.
func (c *SQLCompiler) Count(root *schema.Entity, frag queryir.Fragment) (Query, error) {
	from, where, params, err := c.body(root, frag)
	if err != nil {
		return Query{}, err
	}
	pk := root.Table() + "." + root.PrimaryKey()
	sql := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s%s", pk, from, where)
	return Query{SQL: sql, Params: params}, nil
}

func (c *SQLCompiler) body(root *schema.Entity, frag queryir.Fragment) (string, string, []any, error) {
	from, err := c.compileJoins(root, frag.Joins)
	if err != nil {
		return "", "", nil, err
	}

	cols := frag.Conditions.Columns()
	if len(cols) == 0 {
		return from, "", nil, nil
	}

	parts := make([]string, 0, len(cols))
	var params []any
	for _, col := range cols {
		sql, p, err := c.compilePredicate(col, frag.Conditions[col])
		if err != nil {
			return "", "", nil, fmt.Errorf("compile %s: %w", col, err)
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return from, " WHERE " + strings.Join(parts, " AND "), params, nil
}

// compileJoins renders the FROM clause with one INNER JOIN per join tree
// node, depth first in sorted order. Each table may appear only once:
// predicates address columns by table name, so a second join of the same
// table would be ambiguous.
func (c *SQLCompiler) compileJoins(root *schema.Entity, joins queryir.JoinTree) (string, error) {
	var b strings.Builder
	b.WriteString(root.Table())
	seen := map[string]string{root.Table(): root.Name()}

	var walk func(owner *schema.Entity, tree queryir.JoinTree) error
	walk = func(owner *schema.Entity, tree queryir.JoinTree) error {
		for _, assoc := range tree.Keys() {
			j, err := owner.Join(assoc)
			if err != nil {
				return err
			}
			table := j.Target.Table()
			if prev, ok := seen[table]; ok {
				return fmt.Errorf("table %s joined twice (%s and %s.%s)", table, prev, owner.Name(), assoc)
			}
			seen[table] = owner.Name() + "." + assoc

			fmt.Fprintf(&b, " INNER JOIN %s ON %s.%s = %s.%s",
				table, table, j.TargetColumn, owner.Table(), j.OwnerColumn)

			if err := walk(j.Target, tree[assoc]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, joins); err != nil {
		return "", err
	}
	return b.String(), nil
}

// compilePredicate compiles one column predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(col queryir.Column, p queryir.Predicate) (string, []any, error) {
	field := col.String()

	switch pred := p.(type) {
	case queryir.Equals:
		if isNull(pred.Value) {
			return field + " IS NULL", nil, nil
		}
		return c.binary(field, "=", pred.Value)
	case queryir.NotEquals:
		if isNull(pred.Value) {
			return field + " IS NOT NULL", nil, nil
		}
		return c.binary(field, "!=", pred.Value)
	case queryir.Compare:
		if !queryir.ValidCompareOps[pred.Op] {
			return "", nil, fmt.Errorf("unsupported compare operator %q", pred.Op)
		}
		return c.binary(field, pred.Op, pred.Value)
	case queryir.Like:
		op := "LIKE"
		if pred.Negate {
			op = "NOT LIKE"
		}
		return fmt.Sprintf("%s %s ?", field, op), []any{pred.Pattern}, nil
	case queryir.IsNull:
		if pred.Negate {
			return field + " IS NOT NULL", nil, nil
		}
		return field + " IS NULL", nil, nil
	case queryir.Blank:
		if pred.Negate {
			return fmt.Sprintf("(%s IS NOT NULL AND %s != '')", field, field), nil, nil
		}
		return fmt.Sprintf("(%s IS NULL OR %s = '')", field, field), nil, nil
	case queryir.In:
		return c.compileIn(field, pred)
	case queryir.Any:
		return c.compileGroup(col, pred.Predicates, " OR ", "1 = 0")
	case queryir.And:
		return c.compileGroup(col, pred.Predicates, " AND ", "1 = 1")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) binary(field, op string, v ir.IRValue) (string, []any, error) {
	param, err := ir.ToGo(v)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	if _, ok := param.([]any); ok {
		return "", nil, fmt.Errorf("array value cannot be compared with %s", op)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

// compileIn renders IN (?, ...). An empty list matches nothing, or
// everything when negated.
func (c *SQLCompiler) compileIn(field string, in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		if in.Negate {
			return "1 = 1", nil, nil
		}
		return "1 = 0", nil, nil
	}
	params := make([]any, 0, len(in.Values))
	for _, v := range in.Values {
		param, err := ir.ToGo(v)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		params = append(params, param)
	}
	op := "IN"
	if in.Negate {
		op = "NOT IN"
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
	return fmt.Sprintf("%s %s (%s)", field, op, marks), params, nil
}

// compileGroup joins nested predicates on the same column with sep.
func (c *SQLCompiler) compileGroup(col queryir.Column, preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(col, p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

func isNull(v ir.IRValue) bool {
	switch v.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}
