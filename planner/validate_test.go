package planner

import (
	"testing"

	"github.com/dolthub/go-mysql-server/sql"
	"github.com/stretchr/testify/require"

	"github.com/riftdb/riftdb/engine"
)

func TestTypeCodesCompatible(t *testing.T) {
	require.True(t, typeCodesCompatible(engine.TypeString, engine.TypeString))
	require.True(t, typeCodesCompatible(engine.TypeInteger, engine.TypeLong))
	require.True(t, typeCodesCompatible(engine.TypeLong, engine.TypeInteger))
	require.True(t, typeCodesCompatible(engine.TypeAny, engine.TypeString))
	require.True(t, typeCodesCompatible(engine.TypeString, engine.TypeNull))
	require.False(t, typeCodesCompatible(engine.TypeString, engine.TypeLong))
}

func TestValidateInsertedValuesRejectsTypeMismatch(t *testing.T) {
	stmt, err := parseQuery("INSERT INTO users (id, name) VALUES ('not-a-number', 'alice')")
	require.NoError(t, err)
	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	target := &tableSchema{
		name: "users",
		columns: sql.Schema{
			{Name: "id", Type: fromEngineType(engine.TypeLong)},
			{Name: "name", Type: fromEngineType(engine.TypeString)},
		},
	}
	err = validateInsertedValues(node.children[0], target)
	require.Error(t, err)
}

func TestValidateInsertedValuesAcceptsMatchingTypes(t *testing.T) {
	stmt, err := parseQuery("INSERT INTO users (id, name) VALUES (1, 'alice')")
	require.NoError(t, err)
	node, err := buildLogicalTree(stmt, "default")
	require.NoError(t, err)

	target := &tableSchema{
		name: "users",
		columns: sql.Schema{
			{Name: "id", Type: fromEngineType(engine.TypeLong)},
			{Name: "name", Type: fromEngineType(engine.TypeString)},
		},
	}
	require.NoError(t, validateInsertedValues(node.children[0], target))
}
