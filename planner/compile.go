package planner

import (
	"strconv"
	"strings"

	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/expression"
	"github.com/dolthub/go-mysql-server/sql/types"
	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/riftdb/riftdb/engine"
)

// compileExpr lowers a parsed expression into an engine.CompiledExpr
// (spec.md §3 "Compiled expression"), built over go-mysql-server's
// sql/expression package rather than carrying the dialect's source text
// downstream. Only the shapes named below are accepted — column
// references, literals, positional parameters, comparisons, and
// AND/OR/NOT/parens — matching the subset the lowering table's
// ProjectOp/FilterOp rows assume a compiled expression covers; anything
// else is a planning failure (ErrUnsupportedNode), not a defect the
// engine discovers at execution time.
func compileExpr(e sqlparser.Expr) (engine.CompiledExpr, error) {
	columns := collectColumns(e, nil)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	expr, err := buildExpression(e, index, len(columns))
	if err != nil {
		return engine.CompiledExpr{}, err
	}
	return engine.CompiledExpr{Source: sqlparser.String(e), Columns: columns, Expr: expr}, nil
}

// collectColumns walks e and appends each distinct column name it
// references, in first-encountered order, to columns.
func collectColumns(e sqlparser.Expr, columns []string) []string {
	switch v := e.(type) {
	case *sqlparser.AndExpr:
		columns = collectColumns(v.Left, columns)
		return collectColumns(v.Right, columns)
	case *sqlparser.OrExpr:
		columns = collectColumns(v.Left, columns)
		return collectColumns(v.Right, columns)
	case *sqlparser.NotExpr:
		return collectColumns(v.Expr, columns)
	case *sqlparser.ParenExpr:
		return collectColumns(v.Expr, columns)
	case *sqlparser.ComparisonExpr:
		columns = collectColumns(v.Left, columns)
		return collectColumns(v.Right, columns)
	case *sqlparser.ColName:
		name := v.Name.String()
		for _, c := range columns {
			if c == name {
				return columns
			}
		}
		return append(columns, name)
	default:
		return columns
	}
}

// buildExpression builds the go-mysql-server expression tree for e.
// index maps a column name to its position in the gmssql.Row Eval will
// receive; numColumns is the offset at which bind variables (":v1"-style)
// are placed, past the end of the column values.
func buildExpression(e sqlparser.Expr, index map[string]int, numColumns int) (gmssql.Expression, error) {
	switch v := e.(type) {
	case *sqlparser.ParenExpr:
		return buildExpression(v.Expr, index, numColumns)

	case *sqlparser.AndExpr:
		l, err := buildExpression(v.Left, index, numColumns)
		if err != nil {
			return nil, err
		}
		r, err := buildExpression(v.Right, index, numColumns)
		if err != nil {
			return nil, err
		}
		return expression.NewAnd(l, r), nil

	case *sqlparser.OrExpr:
		l, err := buildExpression(v.Left, index, numColumns)
		if err != nil {
			return nil, err
		}
		r, err := buildExpression(v.Right, index, numColumns)
		if err != nil {
			return nil, err
		}
		return expression.NewOr(l, r), nil

	case *sqlparser.NotExpr:
		child, err := buildExpression(v.Expr, index, numColumns)
		if err != nil {
			return nil, err
		}
		return expression.NewNot(child), nil

	case *sqlparser.ComparisonExpr:
		// A bare column reference carries no type of its own (this
		// reference engine's rows are untyped maps); hint it with
		// whichever side of the comparison is a literal so a numeric
		// comparison isn't forced through Text, where a row value stored
		// as Go string would otherwise fail to convert.
		hint := comparisonTypeHint(v.Left, v.Right)
		l, err := buildComparisonOperand(v.Left, hint, index, numColumns)
		if err != nil {
			return nil, err
		}
		r, err := buildComparisonOperand(v.Right, hint, index, numColumns)
		if err != nil {
			return nil, err
		}
		switch v.Operator {
		case sqlparser.EqualStr:
			return expression.NewEquals(l, r), nil
		case sqlparser.NotEqualStr:
			return expression.NewNot(expression.NewEquals(l, r)), nil
		case sqlparser.LessThanStr:
			return expression.NewLessThan(l, r), nil
		case sqlparser.GreaterThanStr:
			return expression.NewGreaterThan(l, r), nil
		case sqlparser.LessEqualStr:
			return expression.NewLessThanOrEqual(l, r), nil
		case sqlparser.GreaterEqualStr:
			return expression.NewGreaterThanOrEqual(l, r), nil
		default:
			return nil, ErrUnsupportedNode.New("comparison operator " + v.Operator)
		}

	case *sqlparser.ColName:
		name := v.Name.String()
		idx, ok := index[name]
		if !ok {
			return nil, ErrUnsupportedNode.New("unresolved column " + name)
		}
		return expression.NewGetField(idx, types.Text, name, true), nil

	case *sqlparser.SQLVal:
		return buildLiteral(v, numColumns)

	case *sqlparser.NullVal:
		return expression.NewLiteral(nil, types.Null), nil

	default:
		return nil, ErrUnsupportedNode.New("unsupported expression shape " + sqlparser.String(e))
	}
}

// buildComparisonOperand builds one side of a ComparisonExpr. A bare
// column reference is hinted with the comparison's inferred type instead
// of buildExpression's default Text GetField; every other shape compiles
// the same way regardless of context.
func buildComparisonOperand(e sqlparser.Expr, hint gmssql.Type, index map[string]int, numColumns int) (gmssql.Expression, error) {
	col, ok := e.(*sqlparser.ColName)
	if !ok {
		return buildExpression(e, index, numColumns)
	}
	name := col.Name.String()
	idx, ok := index[name]
	if !ok {
		return nil, ErrUnsupportedNode.New("unresolved column " + name)
	}
	return expression.NewGetField(idx, hint, name, true), nil
}

// comparisonTypeHint reports the sql.Type a literal on either side of a
// comparison implies, defaulting to Text when neither side is a literal
// this compiler recognizes.
func comparisonTypeHint(a, b sqlparser.Expr) gmssql.Type {
	if t, ok := literalSQLVal(a); ok {
		return t
	}
	if t, ok := literalSQLVal(b); ok {
		return t
	}
	return types.Text
}

// literalSQLVal reports the sql.Type a bare literal's syntax implies.
// validate.go's validateInsertedValues reuses this classification to
// type-check INSERT literals against their target column's declared type.
func literalSQLVal(e sqlparser.Expr) (gmssql.Type, bool) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok {
		return nil, false
	}
	switch v.Type {
	case sqlparser.IntVal:
		return types.Int64, true
	case sqlparser.FloatVal:
		return types.Float64, true
	case sqlparser.StrVal:
		return types.Text, true
	default:
		return nil, false
	}
}

// buildLiteral builds a go-mysql-server literal or, for a positional bind
// variable (":v1"-style), a GetField reading the parameter slot
// engine.CompiledExpr.Eval appends after the row's column values.
func buildLiteral(v *sqlparser.SQLVal, numColumns int) (gmssql.Expression, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return expression.NewLiteral(string(v.Val), types.Text), nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return nil, ErrUnsupportedNode.New("malformed integer literal " + string(v.Val))
		}
		return expression.NewLiteral(n, types.Int64), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, ErrUnsupportedNode.New("malformed float literal " + string(v.Val))
		}
		return expression.NewLiteral(f, types.Float64), nil
	case sqlparser.ValArg:
		argIdx, err := strconv.Atoi(strings.TrimPrefix(string(v.Val), ":v"))
		if err != nil {
			return nil, ErrUnsupportedNode.New("malformed bind variable " + string(v.Val))
		}
		return expression.NewGetField(numColumns+argIdx-1, types.Text, "", true), nil
	default:
		return nil, ErrUnsupportedNode.New("unsupported literal kind")
	}
}
