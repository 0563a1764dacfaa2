package backend

import "fmt"

// Op is a comparison operator usable in a Filter.
type Op string

const (
	Eq  Op = "eq"
	Neq Op = "neq"
	Gt  Op = "gt"
	Gte Op = "gte"
	Lt  Op = "lt"
	Lte Op = "lte"
)

// SQL returns the SQL spelling of the operator.
func (o Op) SQL() (string, error) {
	switch o {
	case Eq:
		return "=", nil
	case Neq:
		return "<>", nil
	case Gt:
		return ">", nil
	case Gte:
		return ">=", nil
	case Lt:
		return "<", nil
	case Lte:
		return "<=", nil
	}
	return "", fmt.Errorf("backend: unknown operator %q", string(o))
}

// Filter restricts a Select to rows where Column Op Value holds.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Order sorts a Select by one column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a Select. The zero value selects every column of every row
// in backend order.
type Query struct {
	Columns []string
	Filters []Filter
	Orders  []Order
	Limit   int
}

// All is the empty query.
func All() Query { return Query{} }

// Where adds a filter.
func (q Query) Where(column string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: op, Value: value})
	return q
}

// Eq is shorthand for Where(column, Eq, value).
func (q Query) Eq(column string, value any) Query {
	return q.Where(column, Eq, value)
}

// OrderBy appends a sort key.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Desc: desc})
	return q
}

// Take caps the number of rows returned.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Pick restricts the returned columns.
func (q Query) Pick(columns ...string) Query {
	q.Columns = columns
	return q
}
