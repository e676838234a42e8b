package enginetest

import (
	"fmt"
	"sync"

	"github.com/riftdb/riftdb/engine"
)

// tableSpace owns a set of tables and implements engine.TableSpaceManager.
type tableSpace struct {
	name string

	mu     sync.RWMutex
	tables map[string]*Table
}

func newTableSpace(name string) *tableSpace {
	return &tableSpace{name: name, tables: make(map[string]*Table)}
}

var _ engine.TableSpaceManager = (*tableSpace)(nil)

func (ts *tableSpace) createTable(def TableDef) *Table {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := newTable(def)
	ts.tables[def.Name] = t
	return t
}

func (ts *tableSpace) GetTableManager(table string) (engine.TableManager, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tables[table]
	if !ok {
		return nil, fmt.Errorf("enginetest: unknown table %q in table space %q", table, ts.name)
	}
	return t, nil
}

func (ts *tableSpace) allTables() []engine.Table {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]engine.Table, 0, len(ts.tables))
	for _, t := range ts.tables {
		out = append(out, t)
	}
	return out
}

func errUnknownTableSpace(name string) error {
	return fmt.Errorf("enginetest: unknown table space %q", name)
}
