package local

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/orgsite/backend"
)

func (b *Backend) schema(table string) (map[string]bool, error) {
	cols, ok := b.columns[table]
	if !ok {
		return nil, &backend.Error{Op: "select", Status: 404, Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return cols, nil
}

func checkColumn(cols map[string]bool, table, col string) error {
	if !cols[col] {
		return &backend.Error{Status: 400, Message: fmt.Sprintf("column %s.%s does not exist", table, col)}
	}
	return nil
}

// Select builds a parameterised SELECT from q. Every identifier is checked
// against the live schema first, so only values ever reach the driver.
func (b *Backend) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	cols, err := b.schema(table)
	if err != nil {
		return nil, err
	}
	selected := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if err := checkColumn(cols, table, c); err != nil {
				return nil, err
			}
		}
		selected = strings.Join(q.Columns, ", ")
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selected, table)
	for i, f := range q.Filters {
		if err := checkColumn(cols, table, f.Column); err != nil {
			return nil, err
		}
		op, err := f.Op.SQL()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if f.Value == nil {
			switch f.Op {
			case backend.Eq:
				fmt.Fprintf(&sb, "%s IS NULL", f.Column)
				continue
			case backend.Neq:
				fmt.Fprintf(&sb, "%s IS NOT NULL", f.Column)
				continue
			}
		}
		fmt.Fprintf(&sb, "%s %s ?", f.Column, op)
		args = append(args, sqlValue(f.Value))
	}
	for i, o := range q.Orders {
		if err := checkColumn(cols, table, o.Column); err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.Column)
		if o.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	rows, err := b.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Insert adds rows in one transaction. Missing text ids get a UUID and a
// missing created_at is stamped with the current time.
func (b *Backend) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	cols, err := b.schema(table)
	if err != nil {
		return nil, err
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		r = copyRow(r)
		if v, ok := r["id"]; !ok || v == nil || v == "" {
			r["id"] = uuid.NewString()
		}
		if _, ok := r["created_at"]; !ok && cols["created_at"] {
			r["created_at"] = b.now()
		}
		names, args, err := columnsAndArgs(cols, table, r)
		if err != nil {
			return nil, err
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), marks)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, &backend.Error{Op: "insert", Status: 409, Message: err.Error()}
		}
		ids = append(ids, r["id"])
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := make([]backend.Row, 0, len(ids))
	for _, id := range ids {
		got, err := b.Select(ctx, table, backend.All().Eq("id", id))
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// Update patches the row with the given id. The id column itself is never
// rewritten; matching nothing is not an error.
func (b *Backend) Update(ctx context.Context, table, id string, patch backend.Row) error {
	cols, err := b.schema(table)
	if err != nil {
		return err
	}
	patch = copyRow(patch)
	delete(patch, "id")
	if len(patch) == 0 {
		return nil
	}
	names, args, err := columnsAndArgs(cols, table, patch)
	if err != nil {
		return err
	}
	for i := range names {
		names[i] += " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(names, ", "))
	if _, err := b.db.ExecContext(ctx, query, append(args, id)...); err != nil {
		return &backend.Error{Op: "update", Status: 400, Message: err.Error()}
	}
	return nil
}

// Delete removes the row with the given id.
func (b *Backend) Delete(ctx context.Context, table, id string) error {
	if _, err := b.schema(table); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return &backend.Error{Op: "delete", Status: 400, Message: err.Error()}
	}
	return nil
}

// columnsAndArgs returns r's column names in a stable order together with
// their driver values.
func columnsAndArgs(cols map[string]bool, table string, r backend.Row) ([]string, []any, error) {
	names := make([]string, 0, len(r))
	for k := range r {
		if err := checkColumn(cols, table, k); err != nil {
			return nil, nil, err
		}
		names = append(names, k)
	}
	sort.Strings(names)
	args := make([]any, len(names))
	for i, k := range names {
		args[i] = sqlValue(r[k])
	}
	return names, args, nil
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case time.Time:
		return x.UTC().Format(timeLayout)
	case *string:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

func scanRows(rows *sql.Rows) ([]backend.Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []backend.Row
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(backend.Row, len(names))
		for i, name := range names {
			if bs, ok := vals[i].([]byte); ok {
				r[name] = string(bs)
				continue
			}
			r[name] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func copyRow(r backend.Row) backend.Row {
	out := make(backend.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
