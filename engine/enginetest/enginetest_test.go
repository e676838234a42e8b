package enginetest

import (
	"context"
	"testing"

	"github.com/dolthub/go-mysql-server/sql/expression"
	"github.com/dolthub/go-mysql-server/sql/types"
	"github.com/stretchr/testify/require"

	"github.com/riftdb/riftdb/engine"
	"github.com/riftdb/riftdb/proto"
)

func newUsersEngine(t *testing.T) (*Mock, *Table) {
	t.Helper()
	eng := NewMock("node-1")
	tbl := eng.CreateTable("default", TableDef{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []engine.Column{
			{Name: "id", Type: engine.TypeLong},
			{Name: "name", Type: engine.TypeString},
		},
	})
	return eng, tbl
}

func newOrdersEngine(t *testing.T) (*Mock, *Table) {
	t.Helper()
	eng := NewMock("node-1")
	tbl := eng.CreateTable("default", TableDef{
		Name:       "orders",
		PrimaryKey: []string{"id"},
		Columns: []engine.Column{
			{Name: "id", Type: engine.TypeLong},
			{Name: "customer", Type: engine.TypeString},
			{Name: "amount", Type: engine.TypeLong},
		},
	})
	return eng, tbl
}

func TestTableInsertAndDecodeKey(t *testing.T) {
	_, tbl := newUsersEngine(t)
	key, err := tbl.insert(engine.Row{"id": int64(42), "name": "alice"})
	require.NoError(t, err)

	row, err := tbl.DecodeKey(key)
	require.NoError(t, err)
	require.Equal(t, int64(42), row["id"])
}

func TestTableSnapshotIsOrderedBySortedKey(t *testing.T) {
	_, tbl := newUsersEngine(t)
	_, err := tbl.insert(engine.Row{"id": 3, "name": "c"})
	require.NoError(t, err)
	_, err = tbl.insert(engine.Row{"id": 1, "name": "a"})
	require.NoError(t, err)

	rows := tbl.snapshot()
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0]["name"])
	require.Equal(t, "c", rows[1]["name"])
}

func TestTableDeleteWhereRemovesMatches(t *testing.T) {
	_, tbl := newUsersEngine(t)
	tbl.insert(engine.Row{"id": 1, "name": "a"})
	tbl.insert(engine.Row{"id": 2, "name": "b"})

	removed := tbl.deleteWhere(func(r engine.Row) bool { return r["name"] == "a" })
	require.Equal(t, int64(1), removed)
	require.Len(t, tbl.snapshot(), 1)
}

func TestTableUpdateWhereAppliesToMatches(t *testing.T) {
	_, tbl := newUsersEngine(t)
	tbl.insert(engine.Row{"id": 1, "name": "a"})

	updated := tbl.updateWhere(
		func(r engine.Row) bool { return r["id"] == 1 },
		func(r engine.Row) { r["name"] = "updated" },
	)
	require.Equal(t, int64(1), updated)
	require.Equal(t, "updated", tbl.snapshot()[0]["name"])
}

func TestExecuteInsertThenTableScan(t *testing.T) {
	eng, _ := newUsersEngine(t)
	ctx := context.Background()

	insertOp := engine.Operator{
		Kind:  engine.OpInsert,
		Table: "users",
		Children: []engine.Operator{
			{Kind: engine.OpValues, Columns: []string{"id", "name"}, Rows: []engine.Row{{"id": "1", "name": "'alice'"}}},
		},
	}
	result, err := eng.execute(insertOp, engine.EvaluationContext{}, 0)
	require.NoError(t, err)
	require.Equal(t, engine.ResultDML, result.Kind)
	require.Equal(t, int64(1), result.UpdateCount)

	scanOp := engine.Operator{Kind: engine.OpTableScan, Table: "users"}
	result, err = eng.execute(scanOp, engine.EvaluationContext{}, 0)
	require.NoError(t, err)
	require.Equal(t, engine.ResultScan, result.Kind)

	row, ok, err := result.Scanner.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", row["name"])
}

func TestExecuteFastPathTransactions(t *testing.T) {
	eng, _ := newUsersEngine(t)

	result, err := eng.execute(engine.Operator{Kind: engine.OpUnknown}, engine.EvaluationContext{Query: "BEGIN"}, 0)
	require.NoError(t, err)
	require.Equal(t, engine.TxBegin, result.TxOutcome)

	result, err = eng.execute(engine.Operator{Kind: engine.OpUnknown}, engine.EvaluationContext{Query: "COMMIT"}, 5)
	require.NoError(t, err)
	require.Equal(t, engine.TxCommit, result.TxOutcome)
	require.Equal(t, engine.TxID(5), result.Tx)
}

func TestDumpTableSpaceStreamsAllRows(t *testing.T) {
	eng, tbl := newUsersEngine(t)
	tbl.insert(engine.Row{"id": 1, "name": "a"})
	tbl.insert(engine.Row{"id": 2, "name": "b"})

	var chunks []proto.Reply
	ch := recordingChannel{received: &chunks}

	err := eng.DumpTableSpace(context.Background(), "default", "dump-1", proto.Request{ID: 9}, ch, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, true, chunks[len(chunks)-1].Params["last"])
}

// columnExpr builds an engine.CompiledExpr that reads column name unchanged,
// the shape compile.go produces for a bare projected identifier.
func columnExpr(name string) engine.CompiledExpr {
	return engine.CompiledExpr{
		Source:  name,
		Columns: []string{name},
		Expr:    expression.NewGetField(0, types.Text, name, true),
	}
}

// equalsAmountExpr builds the compiled form of "amount = <n>", the shape
// compile.go's buildComparisonOperand produces for a column-vs-int-literal
// comparison.
func equalsAmountExpr(n int64) engine.CompiledExpr {
	return engine.CompiledExpr{
		Source:  "amount = literal",
		Columns: []string{"amount"},
		Expr: expression.NewEquals(
			expression.NewGetField(0, types.Int64, "amount", true),
			expression.NewLiteral(n, types.Int64),
		),
	}
}

func TestExecuteAggregateGroupBySum(t *testing.T) {
	eng, tbl := newOrdersEngine(t)
	tbl.insert(engine.Row{"id": int64(1), "customer": "a", "amount": int64(10)})
	tbl.insert(engine.Row{"id": int64(2), "customer": "a", "amount": int64(5)})
	tbl.insert(engine.Row{"id": int64(3), "customer": "b", "amount": int64(7)})

	op := engine.Operator{
		Kind: engine.OpAggregate,
		Children: []engine.Operator{
			{Kind: engine.OpTableScan, Table: "orders"},
		},
		Columns:       []string{"customer", "total"},
		GroupBy:       []string{"customer"},
		Aggregates:    []string{"", "SUM"},
		AggregateArgs: []string{"", "amount"},
	}
	result, err := eng.execute(op, engine.EvaluationContext{}, 0)
	require.NoError(t, err)
	require.Equal(t, engine.ResultScan, result.Kind)

	totals := map[string]any{}
	for {
		row, ok, err := result.Scanner.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		totals[fmtRowKey(row, "customer")] = row["total"]
	}
	require.Equal(t, int64(15), totals["a"])
	require.Equal(t, int64(7), totals["b"])
}

func fmtRowKey(row engine.Row, col string) string {
	v, _ := row[col].(string)
	return v
}

func TestExecuteAggregateAvgMinMaxCount(t *testing.T) {
	eng, tbl := newOrdersEngine(t)
	tbl.insert(engine.Row{"id": int64(1), "customer": "a", "amount": int64(10)})
	tbl.insert(engine.Row{"id": int64(2), "customer": "a", "amount": int64(20)})
	tbl.insert(engine.Row{"id": int64(3), "customer": "a", "amount": int64(30)})

	op := engine.Operator{
		Kind: engine.OpAggregate,
		Children: []engine.Operator{
			{Kind: engine.OpTableScan, Table: "orders"},
		},
		Columns:       []string{"n", "avg_amount", "min_amount", "max_amount"},
		Aggregates:    []string{"COUNT", "AVG", "MIN", "MAX"},
		AggregateArgs: []string{"", "amount", "amount", "amount"},
	}
	result, err := eng.execute(op, engine.EvaluationContext{}, 0)
	require.NoError(t, err)

	row, ok, err := result.Scanner.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(3), row["n"])
	require.Equal(t, 20.0, row["avg_amount"])
	require.Equal(t, int64(10), row["min_amount"])
	require.Equal(t, int64(30), row["max_amount"])
}

func TestExecuteFilterUsesCompiledPredicate(t *testing.T) {
	eng, tbl := newOrdersEngine(t)
	tbl.insert(engine.Row{"id": int64(1), "customer": "a", "amount": int64(10)})
	tbl.insert(engine.Row{"id": int64(2), "customer": "b", "amount": int64(20)})

	op := engine.Operator{
		Kind: engine.OpFilter,
		Children: []engine.Operator{
			{Kind: engine.OpTableScan, Table: "orders"},
		},
		Predicate: equalsAmountExpr(20),
	}
	result, err := eng.execute(op, engine.EvaluationContext{}, 0)
	require.NoError(t, err)

	var got []engine.Row
	for {
		row, ok, err := result.Scanner.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row)
	}
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0]["customer"])
}

func TestExecuteDeletePropagatesPredicateEvalError(t *testing.T) {
	eng, tbl := newOrdersEngine(t)
	tbl.insert(engine.Row{"id": int64(1), "customer": "a", "amount": int64(10)})

	badPredicate := engine.CompiledExpr{
		Source:  "amount = 'x'",
		Columns: []string{"amount"},
		Expr: expression.NewEquals(
			expression.NewGetField(0, types.Int64, "amount", true),
			expression.NewLiteral("x", types.Int64),
		),
	}
	op := engine.Operator{
		Kind:  engine.OpDelete,
		Table: "orders",
		Children: []engine.Operator{
			{Kind: engine.OpFilter, Children: []engine.Operator{{Kind: engine.OpTableScan, Table: "orders"}}, Predicate: badPredicate},
		},
	}
	_, err := eng.execute(op, engine.EvaluationContext{}, 0)
	require.Error(t, err)
	require.Len(t, tbl.snapshot(), 1, "a row should not be silently treated as deleted when predicate evaluation fails")
}

func TestExecuteProjectEvaluatesAliasedSourceColumn(t *testing.T) {
	eng, tbl := newOrdersEngine(t)
	tbl.insert(engine.Row{"id": int64(1), "customer": "a", "amount": int64(10)})

	op := engine.Operator{
		Kind: engine.OpProject,
		Children: []engine.Operator{
			{Kind: engine.OpTableScan, Table: "orders"},
		},
		Columns: []string{"buyer"},
		Exprs:   []engine.CompiledExpr{columnExpr("customer")},
	}
	result, err := eng.execute(op, engine.EvaluationContext{}, 0)
	require.NoError(t, err)

	row, ok, err := result.Scanner.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", row["buyer"])
}

type recordingChannel struct {
	received *[]proto.Reply
}

func (c recordingChannel) Send(r proto.Reply) error {
	*c.received = append(*c.received, r)
	return nil
}
