package planner

import "github.com/dolthub/vitess/go/vt/sqlparser"

// logicalKind tags one node of the planner's internal logical tree, built
// directly off the parsed statement (spec.md §4.2 step 2).
type logicalKind int

const (
	logicalTableScan logicalKind = iota
	logicalProject
	logicalFilter
	logicalSort
	logicalLimit
	logicalAggregate
	logicalValues
	logicalInsert
	logicalUpdate
	logicalDelete
)

// sortDirection is one ORDER BY key's direction; lowering turns
// sortDescending into SortKey.Desc (spec.md §4.2 lowering table, Sort row).
type sortDirection int

const (
	sortAscending sortDirection = iota
	sortDescending
)

// logicalNode is the validated relational tree that lowering walks
// (spec.md §4.2 steps 2-5). It is intentionally small: only the shapes the
// lowering table names are represented, everything else is a planning
// failure at validation time.
type logicalNode struct {
	kind     logicalKind
	children []*logicalNode

	// logicalTableScan / logicalInsert / logicalUpdate / logicalDelete
	tableSpace string
	table      string

	// logicalProject
	fieldNames []string
	exprs      []string        // dialect source text, parallel to fieldNames; used for shape checks in validate.go
	exprNodes  []sqlparser.Expr // parsed form of exprs, compiled to engine.CompiledExpr by lower.go

	// logicalValues
	rows     [][]string        // literal source text per cell, row-major
	rowNodes [][]sqlparser.Expr // parsed form of rows, used only for INSERT type-checking

	// logicalFilter
	predicate     string // dialect source text, kept for logging/diagnostics
	predicateNode sqlparser.Expr

	// logicalSort
	sortFields []string
	directions []sortDirection

	// logicalLimit
	limit, offset string // empty means absent

	// logicalAggregate
	groupBy []string
	// aggFuncs is parallel to fieldNames: "" marks a bare grouping column
	// passed through rather than computed, otherwise an aggregate function
	// name.
	aggFuncs []string
	// aggArgs is the argument column name for each aggFuncs entry, parallel
	// to it ("" for COUNT(*) or a passthrough entry).
	aggArgs []string

	// logicalUpdate
	updateColumns   []string
	updateExprs     []string // dialect source text, parallel to updateColumns
	updateExprNodes []sqlparser.Expr
}
