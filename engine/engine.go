// Package engine declares the contract the Session Peer and Planner consume
// from the storage engine (spec.md §6). The engine itself — physical
// storage, WAL, consensus, on-disk row encoding — is an external
// collaborator and is not implemented here.
package engine

import (
	"context"

	"github.com/riftdb/riftdb/proto"
)

// TxID identifies a transaction opened by BEGIN. Zero means "no transaction".
type TxID int64

// NodeID identifies the engine node a planner/session is attached to.
type NodeID string

// Column describes one column of a table or a result schema.
type Column struct {
	Name string
	Type TypeCode
}

// Row is a single engine-level record, keyed by column name.
type Row map[string]any

// TypeCode is the engine's column type code. The planner maps it to and
// from its own logical SQL types in planner/types.go (spec.md §4.2
// type-mapping table).
type TypeCode int

const (
	TypeAny TypeCode = iota
	TypeString
	TypeBoolean
	TypeInteger
	TypeLong
	TypeByteArray
	TypeNull
	// TypeTimestamp only appears on the reverse/exposure mapping: no SQL
	// type lowers to it, but GetRow/result columns may carry it.
	TypeTimestamp
)

// Table exposes the schema the planner needs to build its logical schema
// and the session needs to decode primary-key blobs (spec.md §4.1, §4.2).
type Table interface {
	Name() string
	Columns() []Column
	PrimaryKey() []string
	// DecodeKey turns an opaque primary-key blob returned by a DML result
	// into a record keyed by the table's primary-key column names.
	DecodeKey(blob []byte) (Row, error)
}

// TableManager resolves a single table within a table space.
type TableManager interface {
	GetTable() (Table, error)
}

// TableSpaceManager resolves tables within one table space.
type TableSpaceManager interface {
	GetTableManager(table string) (TableManager, error)
}

// Translator is the Planner's entry point as consumed by the session
// (spec.md §6). Engine implementations may delegate straight to a
// planner.Planner, but the session only depends on this interface.
type Translator interface {
	Translate(ctx context.Context, tableSpace, query string, params []any, wantsScan, allowCache, returnValues bool, maxRows int) (TranslatedQuery, error)
}

// TranslatedQuery is the value product of translation: an execution plan
// plus the evaluation context it must run under (spec.md §3).
type TranslatedQuery struct {
	Plan ExecutionPlan
	Eval EvaluationContext
}

// EvaluationContext carries the query text and positional parameters a
// compiled expression closes over.
type EvaluationContext struct {
	Query  string
	Params []any
}

// ExecutionPlan is the immutable, optimized operator tree produced by the
// planner (spec.md §3, §4.2).
type ExecutionPlan struct {
	Statement Statement
	Root      Operator
}

// OperatorKind tags the physical-plan node an Operator was lowered from
// (spec.md §4.2 lowering table).
type OperatorKind int

const (
	OpUnknown OperatorKind = iota
	OpTableScan
	OpProject
	OpValues
	OpSort
	OpFilter
	OpLimit
	OpAggregate
	OpInsert
	OpUpdate
	OpDelete
)

// SortKey orders rows by one projected column.
type SortKey struct {
	Column string
	Desc   bool
}

// Operator is one node of the internal operator algebra the planner lowers
// a validated, optimized physical plan into (spec.md §3, §4.2). Only the
// fields relevant to Kind are populated; Children holds the node's inputs
// in the physical plan's original order.
type Operator struct {
	Kind     OperatorKind
	Children []Operator

	// OpTableScan / OpInsert / OpUpdate / OpDelete
	Table string

	// OpProject / OpUpdate
	Columns []string
	Exprs   []CompiledExpr // compiled expressions, parallel to Columns

	// OpValues
	Rows []Row

	// OpSort
	SortKeys []SortKey

	// OpFilter / OpDelete / OpUpdate
	Predicate CompiledExpr

	// OpLimit
	Limit  int64
	Offset int64

	// OpAggregate
	GroupBy []string
	// Aggregates is parallel to Columns: "" marks a bare grouping column
	// carried through unchanged, otherwise an aggregate function name.
	Aggregates []string
	// AggregateArgs is the argument column name for each entry of
	// Aggregates, parallel to it; "" means the aggregate takes no column
	// (COUNT(*), or a passthrough entry).
	AggregateArgs []string
}

// Statement classifies the translated query's outermost shape.
type Statement int

const (
	StatementUnknown Statement = iota
	StatementScan
	StatementDML
	StatementTransaction
	StatementDDL
)

// ResultKind tags the outcome of executing a plan (spec.md §4.1, design
// note "Polymorphic result shaping").
type ResultKind int

const (
	ResultUnknown ResultKind = iota
	ResultDML
	ResultGet
	ResultTransaction
	ResultDDL
	ResultScan
)

// Result is the tagged union the session matches on after ExecutePlan.
// Exactly the fields relevant to Kind are populated.
type Result struct {
	Kind ResultKind

	// ResultDML
	UpdateCount int64
	Table       string // target table name, needed to decode Key
	Key         []byte // opaque primary-key blob, decoded by the session

	// ResultGet
	Found  bool
	GetRow Row

	// ResultTransaction
	TxOutcome TxOutcome
	Tx        TxID

	// ResultScan
	Scanner Scanner
}

// TxOutcome distinguishes the three transaction-control results.
type TxOutcome int

const (
	TxNone TxOutcome = iota
	TxBegin
	TxCommit
	TxRollback
)

// Scanner is a resumable stream of rows with a declared schema (spec.md §3
// Cursor). Implementations are returned by the engine and owned by the
// session that opened them (Design Notes, "Cursor ownership").
type Scanner interface {
	// Next returns the next row, or ok=false once exhausted.
	Next(ctx context.Context) (row Row, ok bool, err error)
	// Schema returns the ordered column list, stable for the scanner's life.
	Schema() []Column
	// IsFinished reports whether the scanner has been fully drained.
	IsFinished() bool
	// ClientClose releases any resources the scanner holds, idempotently.
	ClientClose() error
}

// Engine is the full external collaborator surface consumed by the Session
// Peer (spec.md §6).
type Engine interface {
	GetTranslator() Translator
	ExecutePlan(ctx context.Context, plan ExecutionPlan, eval EvaluationContext, tx TxID) (Result, error)
	ExecuteStatement(ctx context.Context, statement Statement, eval EvaluationContext, tx TxID) error
	GetTableSpaceManager(tableSpace string) (TableSpaceManager, error)
	DumpTableSpace(ctx context.Context, tableSpace string, dumpID string, origRequest proto.Request, ch proto.Channel, fetchSize int) error
	GetLocalTableSpaces() []string
	GetAllTablesForPlanner(tableSpace string) ([]Table, error)
	GetNodeID() NodeID
}

// NotLeaderError marks a StatementExecution failure whose cause is a
// leadership change on the target table space (spec.md §7 kind 3). The
// session attaches proto.ParamNotLeader when it sees this error.
type NotLeaderError struct {
	TableSpace string
	Cause      error
}

func (e *NotLeaderError) Error() string {
	if e.Cause != nil {
		return "not leader for table space " + e.TableSpace + ": " + e.Cause.Error()
	}
	return "not leader for table space " + e.TableSpace
}

func (e *NotLeaderError) Unwrap() error { return e.Cause }
