// Package enginetest is a reference engine.Engine implementation backed by
// Go maps, grounded on the way the teacher's DatabaseProvider guards its
// catalog state with a *sync.RWMutex (catalog/provider.go). It exists to
// give the session and planner packages something concrete to run against
// in tests and in a standalone binary; it is not a storage engine meant
// for production use (spec.md §6 names physical storage, WAL, and
// consensus as external collaborators).
package enginetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/riftdb/riftdb/engine"
)

// Mock is an in-memory engine.Engine. All table-space state is guarded
// by mu; ExecutePlan and the table-space lookup APIs are safe for
// concurrent use across sessions (spec.md §5 "Scheduling").
type Mock struct {
	mu          sync.RWMutex
	nodeID      engine.NodeID
	tableSpaces map[string]*tableSpace
	nextTx      atomic.Int64
	translator  engine.Translator
}

// SetTranslator binds the planner.Planner (or any engine.Translator) that
// GetTranslator returns. A real engine wires this to a translator bound to
// itself at construction time; tests wire it explicitly so they can swap
// translators without rebuilding the table-space state.
func (e *Mock) SetTranslator(t engine.Translator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.translator = t
}

// NewMock creates an empty Mock engine identified as nodeID.
func NewMock(nodeID string) *Mock {
	return &Mock{
		nodeID:      engine.NodeID(nodeID),
		tableSpaces: make(map[string]*tableSpace),
	}
}

var _ engine.Engine = (*Mock)(nil)

// CreateTableSpace registers an (initially empty) table space. Tests and
// the bootstrap binary use this instead of routing DDL through SQL text.
func (e *Mock) CreateTableSpace(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tableSpaces[name]; !ok {
		e.tableSpaces[name] = newTableSpace(name)
	}
}

// CreateTable registers table def within tableSpace, creating the table
// space if it does not already exist.
func (e *Mock) CreateTable(tableSpace string, def TableDef) *Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts, ok := e.tableSpaces[tableSpace]
	if !ok {
		ts = newTableSpace(tableSpace)
		e.tableSpaces[tableSpace] = ts
	}
	return ts.createTable(def)
}

func (e *Mock) GetNodeID() engine.NodeID { return e.nodeID }

func (e *Mock) GetLocalTableSpaces() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tableSpaces))
	for name := range e.tableSpaces {
		names = append(names, name)
	}
	return names
}

func (e *Mock) GetAllTablesForPlanner(tableSpace string) ([]engine.Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ts, ok := e.tableSpaces[tableSpace]
	if !ok {
		return nil, errUnknownTableSpace(tableSpace)
	}
	return ts.allTables(), nil
}

func (e *Mock) GetTableSpaceManager(tableSpace string) (engine.TableSpaceManager, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ts, ok := e.tableSpaces[tableSpace]
	if !ok {
		return nil, errUnknownTableSpace(tableSpace)
	}
	return ts, nil
}

func (e *Mock) GetTranslator() engine.Translator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.translator
}

func (e *Mock) nextTxID() engine.TxID {
	return engine.TxID(e.nextTx.Add(1))
}

// ExecutePlan interprets an engine.Operator tree (spec.md §4.1 "Execute
// statement" / §4.2 lowering table). Filter, Project and Update expressions
// are evaluated through the engine.CompiledExpr values the planner attached
// to the operators (see execute.go).
func (e *Mock) ExecutePlan(ctx context.Context, plan engine.ExecutionPlan, eval engine.EvaluationContext, tx engine.TxID) (engine.Result, error) {
	return e.execute(plan.Root, eval, tx)
}

// ExecuteStatement runs a statement outside the plan path, such as a
// teardown rollback. This reference engine keeps no transaction state, so
// every statement is accepted and has no effect.
func (e *Mock) ExecuteStatement(ctx context.Context, statement engine.Statement, eval engine.EvaluationContext, tx engine.TxID) error {
	return nil
}

