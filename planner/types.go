package planner

import (
	"github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"
	"github.com/dolthub/vitess/go/sqltypes"

	"github.com/riftdb/riftdb/engine"
)

// toEngineType maps a planner-side logical SQL type to the engine's type
// code (spec.md §4.2 "Type mapping"). Any type not named in the table is a
// planning failure, matching the source's closed type system.
func toEngineType(t sql.Type) (engine.TypeCode, error) {
	switch t.Type() {
	case sqltypes.VarChar, sqltypes.Text, sqltypes.Char:
		return engine.TypeString, nil
	case sqltypes.Bit:
		return engine.TypeBoolean, nil
	case sqltypes.Int8, sqltypes.Int16, sqltypes.Int24, sqltypes.Int32,
		sqltypes.Uint8, sqltypes.Uint16, sqltypes.Uint24, sqltypes.Uint32:
		return engine.TypeInteger, nil
	case sqltypes.Int64, sqltypes.Uint64:
		return engine.TypeLong, nil
	case sqltypes.VarBinary, sqltypes.Binary, sqltypes.Blob:
		return engine.TypeByteArray, nil
	case sqltypes.Null:
		return engine.TypeNull, nil
	case sqltypes.Expression:
		return engine.TypeAny, nil
	default:
		return engine.TypeAny, ErrUnsupportedType.New(t.String())
	}
}

// fromEngineType is the reverse mapping used for schema exposure
// (spec.md §4.2): the same table, plus TIMESTAMP->TIMESTAMP, and any
// unrecognized engine code exposed as ANY rather than failing.
func fromEngineType(code engine.TypeCode) sql.Type {
	switch code {
	case engine.TypeString:
		return types.Text
	case engine.TypeBoolean:
		return types.Boolean
	case engine.TypeInteger:
		return types.Int32
	case engine.TypeLong:
		return types.Int64
	case engine.TypeByteArray:
		return types.Blob
	case engine.TypeNull:
		return types.Null
	case engine.TypeTimestamp:
		return types.Timestamp
	default:
		return types.JSON // closest stand-in for "ANY" in the mysql-ish type system
	}
}
