package enginetest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riftdb/riftdb/engine"
)

// execute walks an engine.Operator tree depth-first, evaluating the
// engine.CompiledExpr predicates/expressions the planner attached to
// Filter/Project/Update nodes rather than reinterpreting SQL text.
func (e *Mock) execute(op engine.Operator, eval engine.EvaluationContext, tx engine.TxID) (engine.Result, error) {
	switch op.Kind {
	case engine.OpUnknown:
		return e.executeFastPath(eval, tx)

	case engine.OpInsert:
		return e.executeInsert(op, eval)

	case engine.OpDelete:
		return e.executeDelete(op, eval)

	case engine.OpUpdate:
		return e.executeUpdate(op, eval)

	case engine.OpTableScan, engine.OpProject, engine.OpFilter, engine.OpSort, engine.OpLimit, engine.OpAggregate:
		rows, schema, err := e.executeScanTree(op, eval)
		if err != nil {
			return engine.Result{}, err
		}
		return engine.Result{Kind: engine.ResultScan, Scanner: newRowScanner(rows, schema)}, nil

	default:
		return engine.Result{}, fmt.Errorf("enginetest: no executor for operator kind %v", op.Kind)
	}
}

// executeFastPath handles the DDL/TCL passthrough the planner produces for
// fast-path statements (spec.md §4.2 "Fast path"). BEGIN/COMMIT/ROLLBACK
// are recognized by keyword; everything else is treated as DDL that
// succeeds trivially, since schema mutation via raw SQL text is outside
// what this reference engine demonstrates.
func (e *Mock) executeFastPath(eval engine.EvaluationContext, tx engine.TxID) (engine.Result, error) {
	trimmed := strings.TrimSpace(eval.Query)
	switch {
	case strings.HasPrefix(trimmed, "BEGIN"):
		return engine.Result{Kind: engine.ResultTransaction, TxOutcome: engine.TxBegin, Tx: e.nextTxID()}, nil
	case strings.HasPrefix(trimmed, "COMMIT"):
		return engine.Result{Kind: engine.ResultTransaction, TxOutcome: engine.TxCommit, Tx: tx}, nil
	case strings.HasPrefix(trimmed, "ROLLBACK"):
		return engine.Result{Kind: engine.ResultTransaction, TxOutcome: engine.TxRollback, Tx: tx}, nil
	default:
		return engine.Result{Kind: engine.ResultDDL}, nil
	}
}

func (e *Mock) executeInsert(op engine.Operator, eval engine.EvaluationContext) (engine.Result, error) {
	if len(op.Children) != 1 || op.Children[0].Kind != engine.OpValues {
		return engine.Result{}, fmt.Errorf("enginetest: InsertOp requires a Values child")
	}
	table, err := e.lookupTable(op.Table)
	if err != nil {
		return engine.Result{}, err
	}

	values := op.Children[0]
	var lastKey []byte
	for _, row := range values.Rows {
		resolved := make(map[string]any, len(row))
		for col, v := range row {
			resolved[col] = resolveLiteral(fmt.Sprint(v), eval.Params)
		}
		key, err := table.insert(resolved)
		if err != nil {
			return engine.Result{}, err
		}
		lastKey = key
	}
	return engine.Result{
		Kind:        engine.ResultDML,
		UpdateCount: int64(len(values.Rows)),
		Table:       op.Table,
		Key:         lastKey,
	}, nil
}

func (e *Mock) executeDelete(op engine.Operator, eval engine.EvaluationContext) (engine.Result, error) {
	table, err := e.lookupTable(op.Table)
	if err != nil {
		return engine.Result{}, err
	}
	match, matchErr, err := matcherForInput(op.Children, eval)
	if err != nil {
		return engine.Result{}, err
	}
	n := table.deleteWhere(match)
	if *matchErr != nil {
		return engine.Result{}, *matchErr
	}
	return engine.Result{Kind: engine.ResultDML, UpdateCount: n, Table: op.Table}, nil
}

func (e *Mock) executeUpdate(op engine.Operator, eval engine.EvaluationContext) (engine.Result, error) {
	table, err := e.lookupTable(op.Table)
	if err != nil {
		return engine.Result{}, err
	}
	match, matchErr, err := matcherForInput(op.Children, eval)
	if err != nil {
		return engine.Result{}, err
	}
	var applyErr error
	apply := func(row engine.Row) {
		for i, col := range op.Columns {
			if i >= len(op.Exprs) {
				continue
			}
			v, err := op.Exprs[i].Eval(row, eval.Params)
			if err != nil {
				applyErr = err
				return
			}
			row[col] = v
		}
	}
	n := table.updateWhere(match, apply)
	if *matchErr != nil {
		return engine.Result{}, *matchErr
	}
	if applyErr != nil {
		return engine.Result{}, applyErr
	}
	return engine.Result{Kind: engine.ResultDML, UpdateCount: n, Table: op.Table}, nil
}

// executeScanTree evaluates a scan-shaped operator tree (TableScan plus
// Filter/Project/Sort/Limit/Aggregate) against a fully materialized row
// set.
func (e *Mock) executeScanTree(op engine.Operator, eval engine.EvaluationContext) ([]engine.Row, []engine.Column, error) {
	switch op.Kind {
	case engine.OpTableScan:
		table, err := e.lookupTable(op.Table)
		if err != nil {
			return nil, nil, err
		}
		return table.snapshot(), table.Columns(), nil

	case engine.OpFilter:
		rows, schema, err := e.executeScanTree(op.Children[0], eval)
		if err != nil {
			return nil, nil, err
		}
		out := rows[:0:0]
		for _, row := range rows {
			match, err := op.Predicate.EvalBool(row, eval.Params)
			if err != nil {
				return nil, nil, err
			}
			if match {
				out = append(out, row)
			}
		}
		return out, schema, nil

	case engine.OpProject:
		rows, schema, err := e.executeScanTree(op.Children[0], eval)
		if err != nil {
			return nil, nil, err
		}
		projected := make([]engine.Row, len(rows))
		for i, row := range rows {
			out := make(engine.Row, len(op.Columns))
			for j, col := range op.Columns {
				if j < len(op.Exprs) {
					v, err := op.Exprs[j].Eval(row, eval.Params)
					if err != nil {
						return nil, nil, err
					}
					out[col] = v
					continue
				}
				out[col] = row[col]
			}
			projected[i] = out
		}
		return projected, projectedSchema(schema, op.Columns), nil

	case engine.OpSort:
		rows, schema, err := e.executeScanTree(op.Children[0], eval)
		if err != nil {
			return nil, nil, err
		}
		sorted := append([]engine.Row(nil), rows...)
		sortRows(sorted, op.SortKeys)
		return sorted, schema, nil

	case engine.OpLimit:
		rows, schema, err := e.executeScanTree(op.Children[0], eval)
		if err != nil {
			return nil, nil, err
		}
		start := 0
		if op.Offset > 0 {
			start = int(op.Offset)
		}
		if start > len(rows) {
			start = len(rows)
		}
		rows = rows[start:]
		if op.Limit >= 0 && int64(len(rows)) > op.Limit {
			rows = rows[:op.Limit]
		}
		return rows, schema, nil

	case engine.OpAggregate:
		rows, schema, err := e.executeScanTree(op.Children[0], eval)
		if err != nil {
			return nil, nil, err
		}
		return aggregate(rows, op), schema, nil

	default:
		return nil, nil, fmt.Errorf("enginetest: no scan executor for operator kind %v", op.Kind)
	}
}

func (e *Mock) lookupTable(name string) (*Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ts := range e.tableSpaces {
		if t, ok := ts.tables[name]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("enginetest: unknown table %q", name)
}

// matcherForInput builds the row predicate an Update/Delete's input
// operator describes (spec.md §4.2 lowering table's "UpdateOp/DeleteOp
// input shapes"): a bare TableScan matches every row, a Filter evaluates
// its compiled predicate. table.go's deleteWhere/updateWhere take a
// bool-only matcher with no error channel, so the first evaluation error
// encountered is captured through the returned pointer instead of being
// silently treated as "no match" — the caller must check it once the
// delete/update pass completes.
func matcherForInput(children []engine.Operator, eval engine.EvaluationContext) (func(engine.Row) bool, *error, error) {
	var matchErr error
	if len(children) == 0 {
		return func(engine.Row) bool { return true }, &matchErr, nil
	}
	switch children[0].Kind {
	case engine.OpTableScan:
		return func(engine.Row) bool { return true }, &matchErr, nil
	case engine.OpFilter:
		predicate := children[0].Predicate
		return func(row engine.Row) bool {
			match, err := predicate.EvalBool(row, eval.Params)
			if err != nil && matchErr == nil {
				matchErr = err
			}
			return err == nil && match
		}, &matchErr, nil
	default:
		return nil, nil, fmt.Errorf("enginetest: unsupported update/delete input shape")
	}
}

// resolveLiteral strips quoting from a string literal and returns it
// as-is, or substitutes a positional parameter when expr names one
// (":v1"-style, matching vitess's bind-variable rendering).
func resolveLiteral(expr string, params []any) any {
	expr = strings.Trim(expr, " '")
	if strings.HasPrefix(expr, ":v") {
		if idx, err := strconv.Atoi(strings.TrimPrefix(expr, ":v")); err == nil && idx-1 >= 0 && idx-1 < len(params) {
			return params[idx-1]
		}
	}
	return expr
}

func projectedSchema(schema []engine.Column, columns []string) []engine.Column {
	byName := make(map[string]engine.Column, len(schema))
	for _, c := range schema {
		byName[c.Name] = c
	}
	out := make([]engine.Column, len(columns))
	for i, name := range columns {
		if c, ok := byName[name]; ok {
			out[i] = c
		} else {
			out[i] = engine.Column{Name: name, Type: engine.TypeAny}
		}
	}
	return out
}

func sortRows(rows []engine.Row, keys []engine.SortKey) {
	less := func(i, j int) bool {
		for _, k := range keys {
			a, b := fmt.Sprint(rows[i][k.Column]), fmt.Sprint(rows[j][k.Column])
			if a == b {
				continue
			}
			if k.Desc {
				return a > b
			}
			return a < b
		}
		return false
	}
	insertionSort(rows, less)
}

func insertionSort(rows []engine.Row, less func(i, j int) bool) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

// aggregate computes one output row per group (or a single row when there is
// no GROUP BY). op.Aggregates is parallel to op.Columns: an empty entry marks
// a bare grouping column carried through from the group's representative
// row rather than computed by applyAggregate.
func aggregate(rows []engine.Row, op engine.Operator) []engine.Row {
	arg := func(i int) string {
		if i < len(op.AggregateArgs) {
			return op.AggregateArgs[i]
		}
		return ""
	}

	fill := func(result engine.Row, group []engine.Row) {
		for i, fn := range op.Aggregates {
			if i >= len(op.Columns) {
				continue
			}
			if fn == "" {
				if len(group) > 0 {
					result[op.Columns[i]] = group[0][op.Columns[i]]
				}
				continue
			}
			result[op.Columns[i]] = applyAggregate(fn, arg(i), group)
		}
	}

	if len(op.GroupBy) == 0 {
		result := make(engine.Row, len(op.Columns))
		fill(result, rows)
		return []engine.Row{result}
	}

	groups := map[string][]engine.Row{}
	var order []string
	for _, row := range rows {
		key := groupKey(row, op.GroupBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	out := make([]engine.Row, 0, len(order))
	for _, key := range order {
		group := groups[key]
		result := make(engine.Row, len(op.Columns))
		fill(result, group)
		for _, col := range op.GroupBy {
			result[col] = group[0][col]
		}
		out = append(out, result)
	}
	return out
}

func groupKey(row engine.Row, groupBy []string) string {
	var b strings.Builder
	for _, col := range groupBy {
		fmt.Fprintf(&b, "%v\x1f", row[col])
	}
	return b.String()
}

// applyAggregate computes one aggregate function over one group of rows.
// arg is the argument column name ("" for COUNT(*)); lower.go rejects any
// function name other than the five handled here before an Operator ever
// reaches this executor, so the default case (a row count) is not reached
// through the planner.
func applyAggregate(fn, arg string, rows []engine.Row) any {
	switch strings.ToUpper(fn) {
	case "COUNT":
		if arg == "" || arg == "*" {
			return int64(len(rows))
		}
		var n int64
		for _, row := range rows {
			if row[arg] != nil {
				n++
			}
		}
		return n

	case "SUM":
		sum, sawValue, allInt := 0.0, false, true
		for _, row := range rows {
			v, ok := numericValue(row[arg])
			if !ok {
				continue
			}
			sawValue = true
			sum += v
			if _, isInt := row[arg].(int64); !isInt {
				allInt = false
			}
		}
		if !sawValue {
			return int64(0)
		}
		if allInt {
			return int64(sum)
		}
		return sum

	case "AVG":
		sum, n := 0.0, 0
		for _, row := range rows {
			if v, ok := numericValue(row[arg]); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)

	case "MIN", "MAX":
		wantMin := strings.ToUpper(fn) == "MIN"
		var best any
		haveBest := false
		for _, row := range rows {
			v := row[arg]
			if v == nil {
				continue
			}
			if !haveBest {
				best, haveBest = v, true
				continue
			}
			if valueLess(v, best) == wantMin {
				best = v
			}
		}
		return best

	default:
		return int64(len(rows))
	}
}

// numericValue coerces a row value to float64, handling both the typed
// values a bind-variable parameter may carry and the plain-text literals
// this reference engine stores for non-parameterized inserts.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// valueLess orders two row values numerically when both parse as
// numbers, falling back to a string comparison otherwise — the same
// fallback sortRows uses for SortKey columns.
func valueLess(a, b any) bool {
	if af, aok := numericValue(a); aok {
		if bf, bok := numericValue(b); bok {
			return af < bf
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
