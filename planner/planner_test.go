package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftdb/riftdb/engine"
	"github.com/riftdb/riftdb/engine/enginetest"
	"github.com/riftdb/riftdb/planner"
)

func newTestEngine(t *testing.T) *enginetest.Mock {
	t.Helper()
	eng := enginetest.NewMock("test-node")
	eng.CreateTable("default", enginetest.TableDef{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []engine.Column{
			{Name: "id", Type: engine.TypeLong},
			{Name: "name", Type: engine.TypeString},
		},
	})
	eng.SetTranslator(planner.New(eng))
	return eng
}

func TestTranslateFastPathDDL(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "CREATE TABLE t (id INT)", nil, false, true, true, 0)
	require.NoError(t, err)
	require.Equal(t, engine.StatementDDL, tq.Plan.Statement)
}

func TestTranslateFastPathTransaction(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "BEGIN", nil, false, true, true, 0)
	require.NoError(t, err)
	require.Equal(t, engine.StatementTransaction, tq.Plan.Statement)
}

func TestTranslateSelectProducesScan(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT * FROM users WHERE id = 1", nil, true, true, false, 0)
	require.NoError(t, err)
	require.Equal(t, engine.StatementScan, tq.Plan.Statement)
	require.Equal(t, engine.OpFilter, tq.Plan.Root.Kind)
	require.Equal(t, engine.OpTableScan, tq.Plan.Root.Children[0].Kind)
}

func TestTranslateInsertProducesDML(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "INSERT INTO users (id, name) VALUES (1, 'alice')", nil, false, true, true, 0)
	require.NoError(t, err)
	require.Equal(t, engine.StatementDML, tq.Plan.Statement)
	require.Equal(t, engine.OpInsert, tq.Plan.Root.Kind)
	require.Equal(t, "users", tq.Plan.Root.Table)
}

func TestTranslateUnknownProjectedColumnFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT id, missing FROM users", nil, true, true, false, 0)
	require.Error(t, err)
}

func TestTranslateKnownProjectedColumnsSucceed(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT id, name FROM users", nil, true, true, false, 0)
	require.NoError(t, err)
	require.Equal(t, engine.StatementScan, tq.Plan.Statement)
}

func TestTranslateUpdateUnknownColumnFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "UPDATE users SET missing = 'x' WHERE id = 1", nil, false, true, true, 0)
	require.Error(t, err)
}

func TestTranslateInsertStringIntoIntegerColumnFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "INSERT INTO users (id, name) VALUES ('x', 'alice')", nil, false, true, true, 0)
	require.Error(t, err)
}

func TestTranslateGroupByProducesAggregate(t *testing.T) {
	eng := newTestEngine(t)
	tq, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT name, COUNT(*) FROM users GROUP BY name", nil, true, true, false, 0)
	require.NoError(t, err)
	require.Equal(t, engine.OpAggregate, tq.Plan.Root.Kind)
	require.Equal(t, []string{"name"}, tq.Plan.Root.GroupBy)
}

func TestTranslateUnsupportedAggregateFunctionFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT MEDIAN(id) FROM users GROUP BY name", nil, true, true, false, 0)
	require.Error(t, err)
}

func TestTranslateUnknownTableFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "SELECT * FROM missing", nil, true, true, false, 0)
	require.Error(t, err)
}

func TestTranslateWantsScanOnDMLFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetTranslator().Translate(context.Background(), "default", "INSERT INTO users (id, name) VALUES (1, 'alice')", nil, true, true, true, 0)
	require.Error(t, err)
}

func TestTranslateEndToEndAgainstMockEngine(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	insertTQ, err := eng.GetTranslator().Translate(ctx, "default", "INSERT INTO users (id, name) VALUES (1, 'alice')", nil, false, true, true, 0)
	require.NoError(t, err)
	result, err := eng.ExecutePlan(ctx, insertTQ.Plan, insertTQ.Eval, 0)
	require.NoError(t, err)
	require.Equal(t, engine.ResultDML, result.Kind)
	require.Equal(t, int64(1), result.UpdateCount)

	selectTQ, err := eng.GetTranslator().Translate(ctx, "default", "SELECT * FROM users WHERE id = 1", nil, true, true, false, 0)
	require.NoError(t, err)
	result, err = eng.ExecutePlan(ctx, selectTQ.Plan, selectTQ.Eval, 0)
	require.NoError(t, err)
	require.Equal(t, engine.ResultScan, result.Kind)

	row, ok, err := result.Scanner.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", row["name"])
}
