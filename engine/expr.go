package engine

import (
	"fmt"

	gmssql "github.com/dolthub/go-mysql-server/sql"
)

// CompiledExpr is the opaque, evaluable form of a parsed SQL expression
// (spec.md §3 "Compiled expression"): a go-mysql-server sql.Expression
// closed over the row layout it was built against, carried on an Operator
// in place of raw SQL text. The planner is the only producer; the zero
// value (nil Expr) stands for "no expression" (an absent predicate).
type CompiledExpr struct {
	// Source is the original dialect text, kept for logging and error
	// messages only — evaluation never re-parses it.
	Source string

	// Columns names the row fields referenced by Expr, in the order their
	// values must be laid out in the gmssql.Row passed to Expr.Eval. Bind
	// variables (":v1"-style) are compiled to GetField references past the
	// end of this slice, at index len(Columns)+argIndex-1, so Eval appends
	// the query's positional parameters after the column values.
	Columns []string

	Expr gmssql.Expression
}

// Eval evaluates the compiled expression against one row and the query's
// positional parameters.
func (c CompiledExpr) Eval(row Row, params []any) (any, error) {
	if c.Expr == nil {
		return nil, nil
	}
	values := make(gmssql.Row, len(c.Columns)+len(params))
	for i, col := range c.Columns {
		values[i] = row[col]
	}
	for i, p := range params {
		values[len(c.Columns)+i] = p
	}
	return c.Expr.Eval(gmssql.NewEmptyContext(), values)
}

// EvalBool evaluates a compiled predicate. An absent predicate (the zero
// value) matches everything, matching a missing WHERE clause. A SQL NULL
// result is not a match, the same three-valued-logic rule a real WHERE
// clause applies.
func (c CompiledExpr) EvalBool(row Row, params []any) (bool, error) {
	if c.Expr == nil {
		return true, nil
	}
	v, err := c.Eval(row, params)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("engine: predicate %q did not evaluate to a boolean (got %T)", c.Source, v)
	}
	return b, nil
}
