package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSelectTreeStarSkipsProject(t *testing.T) {
	stmt, err := parseQuery("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalFilter, node.kind)
	require.Equal(t, logicalTableScan, node.children[0].kind)
	require.Equal(t, "users", node.children[0].table)
}

func TestBuildSelectTreeProjectsNamedColumns(t *testing.T) {
	stmt, err := parseQuery("SELECT id, name AS n FROM users")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalProject, node.kind)
	require.Equal(t, []string{"id", "n"}, node.fieldNames)
	require.Len(t, node.exprNodes, 2)
	require.Equal(t, "id", node.exprs[0])
	require.Equal(t, "name", node.exprs[1])
}

func TestBuildSelectTreeWhereCapturesPredicateNode(t *testing.T) {
	stmt, err := parseQuery("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalFilter, node.kind)
	require.Equal(t, "id = 1", node.predicate)
	require.NotNil(t, node.predicateNode)
}

func TestBuildSelectTreeGroupByCapturesAggregateArgs(t *testing.T) {
	stmt, err := parseQuery("SELECT customer, SUM(amount), COUNT(*) FROM orders GROUP BY customer")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalAggregate, node.kind)
	require.Equal(t, []string{"customer"}, node.groupBy)
	require.Equal(t, []string{"", "SUM", "COUNT"}, node.aggFuncs)
	require.Equal(t, []string{"", "amount", ""}, node.aggArgs)
	require.Len(t, node.fieldNames, 3)
}

func TestBuildSelectTreeOrderByAndLimit(t *testing.T) {
	stmt, err := parseQuery("SELECT * FROM users ORDER BY id DESC LIMIT 10 OFFSET 5")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalLimit, node.kind)
	require.Equal(t, "10", node.limit)
	require.Equal(t, "5", node.offset)

	sortNode := node.children[0]
	require.Equal(t, logicalSort, sortNode.kind)
	require.Equal(t, sortDescending, sortNode.directions[0])
}

func TestBuildSelectTreeRejectsJoins(t *testing.T) {
	stmt, err := parseQuery("SELECT * FROM a, b")
	require.NoError(t, err)

	_, err = buildLogicalTree(stmt, "default")
	require.Error(t, err)
}

func TestBuildInsertTree(t *testing.T) {
	stmt, err := parseQuery("INSERT INTO users (id, name) VALUES (1, 'alice')")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalInsert, node.kind)
	require.Equal(t, "users", node.table)
	require.Len(t, node.children, 1)
	require.Equal(t, logicalValues, node.children[0].kind)
	require.Equal(t, []string{"id", "name"}, node.children[0].fieldNames)
}

func TestBuildInsertTreeRejectsInsertSelect(t *testing.T) {
	stmt, err := parseQuery("INSERT INTO users (id) SELECT id FROM other")
	require.NoError(t, err)

	_, err = buildLogicalTree(stmt, "default")
	require.Error(t, err)
}

func TestBuildUpdateTree(t *testing.T) {
	stmt, err := parseQuery("UPDATE users SET name = 'bob' WHERE id = 1")
	require.NoError(t, err)

	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	require.Equal(t, logicalUpdate, node.kind)
	require.Equal(t, []string{"name"}, node.updateColumns)
	require.Equal(t, logicalFilter, node.children[0].kind)
}

func TestBuildDeleteTreeRejectsMultiTable(t *testing.T) {
	stmt, err := parseQuery("DELETE a FROM a, b WHERE a.id = b.id")
	require.NoError(t, err)

	_, err = buildLogicalTree(stmt, "default")
	require.Error(t, err)
}
