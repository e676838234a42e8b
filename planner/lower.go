package planner

import "github.com/riftdb/riftdb/engine"

// lower recursively translates the chosen physical tree into the internal
// operator algebra (spec.md §4.2 step 5, lowering table).
func lower(node *logicalNode) (engine.Operator, error) {
	children, err := lowerChildren(node.children)
	if err != nil {
		return engine.Operator{}, err
	}

	switch node.kind {
	case logicalTableScan:
		return engine.Operator{Kind: engine.OpTableScan, Table: node.table}, nil

	case logicalProject:
		exprs := make([]engine.CompiledExpr, len(node.exprNodes))
		for i, e := range node.exprNodes {
			compiled, err := compileExpr(e)
			if err != nil {
				return engine.Operator{}, err
			}
			exprs[i] = compiled
		}
		return engine.Operator{
			Kind:     engine.OpProject,
			Children: children,
			Columns:  node.fieldNames,
			Exprs:    exprs,
		}, nil

	case logicalValues:
		rows := make([]engine.Row, len(node.rows))
		for i, row := range node.rows {
			r := make(engine.Row, len(row))
			for j, cell := range row {
				if j < len(node.fieldNames) {
					r[node.fieldNames[j]] = cell
				}
			}
			rows[i] = r
		}
		return engine.Operator{Kind: engine.OpValues, Columns: node.fieldNames, Rows: rows}, nil

	case logicalSort:
		keys := make([]engine.SortKey, len(node.sortFields))
		for i, f := range node.sortFields {
			keys[i] = engine.SortKey{Column: f, Desc: node.directions[i] == sortDescending}
		}
		return engine.Operator{Kind: engine.OpSort, Children: children, SortKeys: keys}, nil

	case logicalLimit:
		return engine.Operator{
			Kind:     engine.OpLimit,
			Children: children,
			Limit:    parseBound(node.limit),
			Offset:   parseBound(node.offset),
		}, nil

	case logicalFilter:
		var predicate engine.CompiledExpr
		if node.predicateNode != nil {
			compiled, err := compileExpr(node.predicateNode)
			if err != nil {
				return engine.Operator{}, err
			}
			predicate = compiled
		}
		return engine.Operator{Kind: engine.OpFilter, Children: children, Predicate: predicate}, nil

	case logicalAggregate:
		for _, fn := range node.aggFuncs {
			if fn != "" && !isSupportedAggregate(fn) {
				return engine.Operator{}, ErrUnsupportedNode.New("aggregate function " + fn)
			}
		}
		return engine.Operator{
			Kind:          engine.OpAggregate,
			Children:      children,
			Columns:       node.fieldNames,
			GroupBy:       node.groupBy,
			Aggregates:    node.aggFuncs,
			AggregateArgs: node.aggArgs,
		}, nil

	case logicalInsert:
		// returnValues is not carried on the operator or the plan; the
		// engine decides on its own whether to populate Result.Key on the
		// ResultDML it returns (the reference engine always does).
		return engine.Operator{Kind: engine.OpInsert, Children: children, Table: node.table}, nil

	case logicalUpdate:
		exprs := make([]engine.CompiledExpr, len(node.updateExprNodes))
		for i, e := range node.updateExprNodes {
			compiled, err := compileExpr(e)
			if err != nil {
				return engine.Operator{}, err
			}
			exprs[i] = compiled
		}
		return engine.Operator{
			Kind:     engine.OpUpdate,
			Children: children,
			Table:    node.table,
			Columns:  node.updateColumns,
			Exprs:    exprs,
		}, nil

	case logicalDelete:
		return engine.Operator{Kind: engine.OpDelete, Children: children, Table: node.table}, nil

	default:
		return engine.Operator{}, ErrUnsupportedNode.New("no lowering rule for node")
	}
}

// isSupportedAggregate reports whether fn (already upper-cased by
// buildAggregateNode) is one applyAggregate knows how to compute. An
// unrecognized name is rejected here, at plan time, rather than silently
// falling back to a row count at execution time.
func isSupportedAggregate(fn string) bool {
	switch fn {
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return true
	default:
		return false
	}
}

func lowerChildren(children []*logicalNode) ([]engine.Operator, error) {
	if len(children) == 0 {
		return nil, nil
	}
	out := make([]engine.Operator, len(children))
	for i, c := range children {
		op, err := lower(c)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

// parseBound returns -1 for an absent fetch/offset expression (spec.md
// §4.2 lowering table, Limit row: "either may be a null/absent
// expression"); a non-constant bound is left to the engine to evaluate
// against EvaluationContext.Params, so only the literal case is resolved
// here.
func parseBound(text string) int64 {
	if text == "" {
		return -1
	}
	n, ok := parseInt64(text)
	if !ok {
		return -1
	}
	return n
}

func parseInt64(s string) (int64, bool) {
	var n int64
	neg := false
	i := 0
	if len(s) > 0 && s[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(s) {
		return 0, false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
