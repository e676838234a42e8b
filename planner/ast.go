package planner

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
)

// parseQuery turns SQL text into a statement using the dialect configured
// for the rest of the pipeline: MySQL-ish conformance, case-insensitive
// keywords, case-folded identifiers (spec.md §4.2 "Public contract").
func parseQuery(query string) (sqlparser.Statement, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return nil, ErrParse.New(err)
	}
	return stmt, nil
}

// buildLogicalTree implements spec.md §4.2 step 2: parse into a logical
// relational tree. Only the statement shapes the lowering table names are
// accepted; anything else fails validation immediately rather than
// producing a node with no lowering rule.
func buildLogicalTree(stmt sqlparser.Statement, defaultTableSpace string) (*logicalNode, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return buildSelectTree(s, defaultTableSpace)
	case *sqlparser.Insert:
		return buildInsertTree(s, defaultTableSpace)
	case *sqlparser.Update:
		return buildUpdateTree(s, defaultTableSpace)
	case *sqlparser.Delete:
		return buildDeleteTree(s, defaultTableSpace)
	default:
		return nil, ErrUnsupportedNode.New(sqlparser.String(stmt))
	}
}

func tableSpaceAndName(name sqlparser.TableName, defaultTableSpace string) (string, string) {
	tableSpace := defaultTableSpace
	if !name.Qualifier.IsEmpty() {
		tableSpace = name.Qualifier.String()
	}
	return tableSpace, name.Name.String()
}

func buildSelectTree(sel *sqlparser.Select, defaultTableSpace string) (*logicalNode, error) {
	if len(sel.From) != 1 {
		return nil, ErrUnsupportedNode.New("only single-table FROM clauses are supported")
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, ErrUnsupportedNode.New("joins are not supported")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return nil, ErrUnsupportedNode.New("only plain table references are supported")
	}
	tableSpace, table := tableSpaceAndName(tableName, defaultTableSpace)

	var node *logicalNode = &logicalNode{kind: logicalTableScan, tableSpace: tableSpace, table: table}

	if sel.Where != nil {
		node = &logicalNode{
			kind:          logicalFilter,
			children:      []*logicalNode{node},
			predicate:     sqlparser.String(sel.Where.Expr),
			predicateNode: sel.Where.Expr,
		}
	}

	if len(sel.GroupBy) > 0 {
		node = buildAggregateNode(node, sel)
	} else {
		fieldNames, exprs, exprNodes, isStar := projectedFields(sel.SelectExprs)
		if !isStar {
			node = &logicalNode{
				kind:       logicalProject,
				children:   []*logicalNode{node},
				fieldNames: fieldNames,
				exprs:      exprs,
				exprNodes:  exprNodes,
			}
		}
	}

	if len(sel.OrderBy) > 0 {
		fields := make([]string, len(sel.OrderBy))
		directions := make([]sortDirection, len(sel.OrderBy))
		for i, ord := range sel.OrderBy {
			fields[i] = sqlparser.String(ord.Expr)
			if ord.Direction == sqlparser.DescScr {
				directions[i] = sortDescending
			} else {
				directions[i] = sortAscending
			}
		}
		node = &logicalNode{kind: logicalSort, children: []*logicalNode{node}, sortFields: fields, directions: directions}
	}

	if sel.Limit != nil {
		limitText, offsetText := "", ""
		if sel.Limit.Rowcount != nil {
			limitText = sqlparser.String(sel.Limit.Rowcount)
		}
		if sel.Limit.Offset != nil {
			offsetText = sqlparser.String(sel.Limit.Offset)
		}
		node = &logicalNode{kind: logicalLimit, children: []*logicalNode{node}, limit: limitText, offset: offsetText}
	}

	return node, nil
}

// projectedFields flattens SELECT's expression list into parallel name/expr
// slices; a bare "*" reports isStar so the caller can skip an identity
// Project (spec.md §4.2 lowering table, Project row: "one compiled expr
// per output field" — a star has none to compile).
func projectedFields(exprs sqlparser.SelectExprs) (names, compiled []string, nodes []sqlparser.Expr, isStar bool) {
	if len(exprs) == 1 {
		if _, ok := exprs[0].(*sqlparser.StarExpr); ok {
			return nil, nil, nil, true
		}
	}
	for _, e := range exprs {
		aliased, ok := e.(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		name := sqlparser.String(aliased.Expr)
		if !aliased.As.IsEmpty() {
			name = aliased.As.String()
		}
		names = append(names, name)
		compiled = append(compiled, sqlparser.String(aliased.Expr))
		nodes = append(nodes, aliased.Expr)
	}
	return names, compiled, nodes, false
}

func buildAggregateNode(input *logicalNode, sel *sqlparser.Select) *logicalNode {
	groupBy := make([]string, len(sel.GroupBy))
	for i, e := range sel.GroupBy {
		groupBy[i] = sqlparser.String(e)
	}

	// aggFuncs and aggArgs are kept parallel to fieldNames, one entry per
	// projected expression: "" in aggFuncs marks a bare grouping column
	// passed through from the group's representative row rather than
	// computed by applyAggregate (execute.go's aggregate()).
	var fieldNames, aggFuncs, aggArgs []string
	for _, e := range sel.SelectExprs {
		aliased, ok := e.(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		fn, ok := aliased.Expr.(*sqlparser.FuncExpr)
		if !ok {
			fieldNames = append(fieldNames, sqlparser.String(aliased.Expr))
			aggFuncs = append(aggFuncs, "")
			aggArgs = append(aggArgs, "")
			continue
		}
		name := strings.ToUpper(fn.Name.String())
		outName := name
		if !aliased.As.IsEmpty() {
			outName = aliased.As.String()
		}
		fieldNames = append(fieldNames, outName)
		aggFuncs = append(aggFuncs, name)
		aggArgs = append(aggArgs, aggregateArgColumn(fn))
	}

	return &logicalNode{
		kind:       logicalAggregate,
		children:   []*logicalNode{input},
		fieldNames: fieldNames,
		groupBy:    groupBy,
		aggFuncs:   aggFuncs,
		aggArgs:    aggArgs,
	}
}

// aggregateArgColumn extracts the single argument column name from a
// parsed aggregate call (SUM(col), AVG(col), MIN(col), MAX(col)). COUNT(*)
// and any call this reference planner can't resolve to one argument
// column report "", which applyAggregate's COUNT treats as "count every
// row".
func aggregateArgColumn(fn *sqlparser.FuncExpr) string {
	if len(fn.Exprs) != 1 {
		return ""
	}
	switch arg := fn.Exprs[0].(type) {
	case *sqlparser.StarExpr:
		return ""
	case *sqlparser.AliasedExpr:
		return sqlparser.String(arg.Expr)
	default:
		return ""
	}
}

func buildInsertTree(ins *sqlparser.Insert, defaultTableSpace string) (*logicalNode, error) {
	tableSpace, table := tableSpaceAndName(ins.Table, defaultTableSpace)

	values, ok := ins.Rows.(sqlparser.Values)
	if !ok {
		return nil, ErrUnsupportedNode.New("INSERT ... SELECT is not supported")
	}

	fieldNames := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		fieldNames[i] = c.String()
	}

	rows := make([][]string, len(values))
	rowNodes := make([][]sqlparser.Expr, len(values))
	for i, tuple := range values {
		row := make([]string, len(tuple))
		nodes := make([]sqlparser.Expr, len(tuple))
		for j, expr := range tuple {
			row[j] = sqlparser.String(expr)
			nodes[j] = expr
		}
		rows[i] = row
		rowNodes[i] = nodes
	}

	valuesNode := &logicalNode{kind: logicalValues, fieldNames: fieldNames, rows: rows, rowNodes: rowNodes}
	return &logicalNode{
		kind:       logicalInsert,
		children:   []*logicalNode{valuesNode},
		tableSpace: tableSpace,
		table:      table,
	}, nil
}

func buildUpdateTree(upd *sqlparser.Update, defaultTableSpace string) (*logicalNode, error) {
	if len(upd.TableExprs) != 1 {
		return nil, ErrUnsupportedNode.New("UPDATE with multiple tables is not supported")
	}
	aliased, ok := upd.TableExprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, ErrUnsupportedNode.New("UPDATE target must be a plain table")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return nil, ErrUnsupportedNode.New("UPDATE target must be a plain table")
	}
	tableSpace, table := tableSpaceAndName(tableName, defaultTableSpace)

	var input *logicalNode = &logicalNode{kind: logicalTableScan, tableSpace: tableSpace, table: table}
	if upd.Where != nil {
		input = &logicalNode{
			kind:          logicalFilter,
			children:      []*logicalNode{input},
			predicate:     sqlparser.String(upd.Where.Expr),
			predicateNode: upd.Where.Expr,
		}
	}

	columns := make([]string, len(upd.Exprs))
	exprs := make([]string, len(upd.Exprs))
	exprNodes := make([]sqlparser.Expr, len(upd.Exprs))
	for i, e := range upd.Exprs {
		columns[i] = e.Name.Name.String()
		exprs[i] = sqlparser.String(e.Expr)
		exprNodes[i] = e.Expr
	}

	return &logicalNode{
		kind:            logicalUpdate,
		children:        []*logicalNode{input},
		tableSpace:      tableSpace,
		table:           table,
		updateColumns:   columns,
		updateExprs:     exprs,
		updateExprNodes: exprNodes,
	}, nil
}

func buildDeleteTree(del *sqlparser.Delete, defaultTableSpace string) (*logicalNode, error) {
	if len(del.TableExprs) != 1 {
		return nil, ErrUnsupportedNode.New("DELETE with multiple tables is not supported")
	}
	aliased, ok := del.TableExprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, ErrUnsupportedNode.New("DELETE target must be a plain table")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return nil, ErrUnsupportedNode.New("DELETE target must be a plain table")
	}
	tableSpace, table := tableSpaceAndName(tableName, defaultTableSpace)

	var input *logicalNode = &logicalNode{kind: logicalTableScan, tableSpace: tableSpace, table: table}
	if del.Where != nil {
		input = &logicalNode{
			kind:          logicalFilter,
			children:      []*logicalNode{input},
			predicate:     sqlparser.String(del.Where.Expr),
			predicateNode: del.Where.Expr,
		}
	}

	return &logicalNode{
		kind:       logicalDelete,
		children:   []*logicalNode{input},
		tableSpace: tableSpace,
		table:      table,
	}, nil
}
