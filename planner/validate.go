package planner

import (
	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/riftdb/riftdb/engine"
)

// validate implements spec.md §4.2 step 3: name resolution and the shape
// checks the lowering table calls out explicitly for TableModify nodes.
// Expression type inference is not reproduced bit-for-bit here; columns
// are resolved by name against the root schema, which is the failure mode
// that actually matters for planning ("unknown table/column").
func validate(node *logicalNode, schema *rootSchema) error {
	switch node.kind {
	case logicalTableScan:
		_, err := schema.resolveTable(node.tableSpace, node.table)
		return err
	case logicalProject:
		for _, child := range node.children {
			if err := validate(child, schema); err != nil {
				return err
			}
		}
		return validateProjectedColumns(node, schema)
	case logicalInsert:
		target, err := schema.resolveTable(node.tableSpace, node.table)
		if err != nil {
			return err
		}
		if err := validate(node.children[0], schema); err != nil {
			return err
		}
		return validateInsertedValues(node.children[0], target)
	case logicalUpdate:
		target, err := schema.resolveTable(node.tableSpace, node.table)
		if err != nil {
			return err
		}
		if !isUpdateDeleteShape(node.children[0]) {
			return ErrUnsupportedNode.New("UPDATE input must be TableScan, Filter(TableScan), or Project(TableScan|Filter(TableScan))")
		}
		if err := validate(node.children[0], schema); err != nil {
			return err
		}
		return validateUpdatedColumns(node, target)
	case logicalDelete:
		if _, err := schema.resolveTable(node.tableSpace, node.table); err != nil {
			return err
		}
		if child := node.children[0]; child.kind == logicalProject || !isUpdateDeleteShape(child) {
			return ErrUnsupportedNode.New("DELETE input must be TableScan or Filter(TableScan)")
		}
		return validate(node.children[0], schema)
	case logicalValues:
		return nil
	default:
		for _, child := range node.children {
			if err := validate(child, schema); err != nil {
				return err
			}
		}
		return nil
	}
}

// validateProjectedColumns rejects a Project whose output references a
// column name the underlying table doesn't have. Only bare identifiers are
// checked: a compiled expression that isn't a plain column name (a
// function call, arithmetic, a literal) is left to the engine, which is
// the same "only the failure mode that actually matters for planning"
// tradeoff validate's doc comment already makes for predicates.
func validateProjectedColumns(node *logicalNode, schema *rootSchema) error {
	target, ok := underlyingTable(node, schema)
	if !ok {
		return nil
	}
	for _, expr := range node.exprs {
		if !isIdentifier(expr) {
			continue
		}
		if !target.hasColumn(expr) {
			return ErrMetadata.New("unknown column " + expr + " in " + target.name)
		}
	}
	return nil
}

// validateUpdatedColumns rejects a SET clause naming a column the target
// table doesn't have.
func validateUpdatedColumns(node *logicalNode, target *tableSchema) error {
	for _, col := range node.updateColumns {
		if !target.hasColumn(col) {
			return ErrMetadata.New("unknown column " + col + " in " + target.name)
		}
	}
	return nil
}

// validateInsertedValues type-checks each literal in a Values node against
// its target column's declared type via toEngineType/fromEngineType
// (spec.md §4.2 "Type mapping"). A cell that isn't a plain literal (a bind
// variable, an expression) is left to the engine, same as
// validateProjectedColumns does for non-identifier projections.
func validateInsertedValues(values *logicalNode, target *tableSchema) error {
	for _, row := range values.rowNodes {
		for i, node := range row {
			if i >= len(values.fieldNames) {
				continue
			}
			col := target.column(values.fieldNames[i])
			if col == nil || node == nil {
				continue
			}
			litType, ok := literalSQLVal(node)
			if !ok {
				continue
			}
			gotCode, err := toEngineType(litType)
			if err != nil {
				continue
			}
			wantCode, err := toEngineType(col.Type)
			if err != nil {
				continue
			}
			if !typeCodesCompatible(wantCode, gotCode) {
				return ErrUnsupportedType.New(sqlparser.String(node) + " is not assignable to column " + values.fieldNames[i])
			}
		}
	}
	return nil
}

// typeCodesCompatible allows an integer literal to target either integer
// width column and treats TypeAny/TypeNull as wildcards, since neither the
// engine's type system nor a bare literal's syntax can distinguish a
// column's declared width from the width a literal would need at runtime.
func typeCodesCompatible(want, got engine.TypeCode) bool {
	if want == got {
		return true
	}
	if want == engine.TypeAny || got == engine.TypeAny || got == engine.TypeNull {
		return true
	}
	integral := func(c engine.TypeCode) bool { return c == engine.TypeInteger || c == engine.TypeLong }
	return integral(want) && integral(got)
}

// underlyingTable walks a single-branch chain down to the TableScan it
// projects or filters over, matching the single-table shapes ast.go ever
// builds. It reports ok=false for shapes with no single resolvable table
// (there currently are none, but a future multi-table Project should fail
// open here rather than panic).
func underlyingTable(node *logicalNode, schema *rootSchema) (*tableSchema, bool) {
	for {
		switch node.kind {
		case logicalTableScan:
			t, err := schema.resolveTable(node.tableSpace, node.table)
			if err != nil {
				return nil, false
			}
			return t, true
		case logicalFilter, logicalProject, logicalSort, logicalLimit, logicalAggregate:
			if len(node.children) != 1 {
				return nil, false
			}
			node = node.children[0]
		default:
			return nil, false
		}
	}
}

// isIdentifier reports whether expr is a plain SQL identifier (letters,
// digits, underscore, not leading with a digit) rather than a compiled
// expression with operators, calls, or literals.
func isIdentifier(expr string) bool {
	if expr == "" {
		return false
	}
	for i, r := range expr {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isUpdateDeleteShape checks the exact input shapes the lowering table
// allows for UpdateOp (spec.md §4.2 lowering table). DeleteOp allows the
// same shapes except Project, which validate rejects for DELETE itself.
func isUpdateDeleteShape(node *logicalNode) bool {
	switch node.kind {
	case logicalTableScan:
		return true
	case logicalFilter:
		return len(node.children) == 1 && node.children[0].kind == logicalTableScan
	case logicalProject:
		if len(node.children) != 1 {
			return false
		}
		child := node.children[0]
		return child.kind == logicalTableScan ||
			(child.kind == logicalFilter && len(child.children) == 1 && child.children[0].kind == logicalTableScan)
	default:
		return false
	}
}
