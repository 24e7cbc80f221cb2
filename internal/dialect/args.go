package dialect

import "strings"

// Args collects bound values while a query is being assembled and hands out
// the matching placeholder for each one.
type Args struct {
	d    Dialect
	vals []any
}

func NewArgs(d Dialect) *Args {
	return &Args{d: d}
}

// Add binds v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.Placeholder(len(a.vals))
}

// In binds every value and returns a comma separated placeholder list.
// An empty list yields NULL so "x IN (NULL)" matches nothing.
func (a *Args) In(vs ...any) string {
	if len(vs) == 0 {
		return "NULL"
	}
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = a.Add(v)
	}
	return strings.Join(ph, ", ")
}

// InStrings is In for string slices.
func (a *Args) InStrings(vs []string) string {
	xs := make([]any, len(vs))
	for i, v := range vs {
		xs[i] = v
	}
	return a.In(xs...)
}

// InInts is In for int slices.
func (a *Args) InInts(vs []int) string {
	xs := make([]any, len(vs))
	for i, v := range vs {
		xs[i] = v
	}
	return a.In(xs...)
}

// Between returns "col BETWEEN lo AND hi" with both bounds bound.
func (a *Args) Between(col, lo, hi string) string {
	if lo == hi {
		return col + " = " + a.Add(lo)
	}
	return col + " BETWEEN " + a.Add(lo) + " AND " + a.Add(hi)
}

// Values returns the bound values in placeholder order.
func (a *Args) Values() []any {
	return a.vals
}

// Len is the number of bound values.
func (a *Args) Len() int {
	return len(a.vals)
}

// Dialect returns the dialect the placeholders are emitted for.
func (a *Args) Dialect() Dialect {
	return a.d
}
