package supabase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/eringen/orgsite/backend"
)

// applyQuery renders q onto a PostgREST select.
func applyQuery(qb *postgrest.QueryBuilder, q backend.Query) (*postgrest.FilterBuilder, error) {
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ",")
	}
	fb := qb.Select(columns, "", false)
	for _, f := range q.Filters {
		if _, err := f.Op.SQL(); err != nil {
			return nil, err
		}
		switch {
		case f.Value == nil && f.Op == backend.Eq:
			fb = fb.Filter(f.Column, "is", "null")
		case f.Value == nil && f.Op == backend.Neq:
			fb = fb.Not(f.Column, "is", "null")
		default:
			fb = fb.Filter(f.Column, string(f.Op), literal(f.Value))
		}
	}
	for _, o := range q.Orders {
		fb = fb.Order(o.Column, &postgrest.OrderOpts{Ascending: !o.Desc})
	}
	if q.Limit > 0 {
		fb = fb.Limit(q.Limit, "")
	}
	return fb, nil
}

func literal(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Select reads rows from table.
func (c *Client) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	fb, err := applyQuery(c.rest(ctx).From(table), q)
	if err != nil {
		return nil, err
	}
	rows, err := run(ctx, c.timeout, func() ([]backend.Row, error) {
		var rows []backend.Row
		_, err := fb.ExecuteTo(&rows)
		return rows, err
	})
	return rows, restError("select "+table, err)
}

// Insert posts rows and returns them as stored.
func (c *Client) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	out, err := run(ctx, c.timeout, func() ([]backend.Row, error) {
		var out []backend.Row
		_, err := c.rest(ctx).From(table).
			Insert(rows, false, "", "representation", "").
			ExecuteTo(&out)
		return out, err
	})
	return out, restError("insert "+table, err)
}

// Update patches the row with the given id.
func (c *Client) Update(ctx context.Context, table, id string, patch backend.Row) error {
	_, err := run(ctx, c.timeout, func() ([]byte, error) {
		body, _, err := c.rest(ctx).From(table).
			Update(patch, "minimal", "").
			Eq("id", id).
			Execute()
		return body, err
	})
	return restError("update "+table, err)
}

// Delete removes the row with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	_, err := run(ctx, c.timeout, func() ([]byte, error) {
		body, _, err := c.rest(ctx).From(table).
			Delete("minimal", "").
			Eq("id", id).
			Execute()
		return body, err
	})
	return restError("delete "+table, err)
}
