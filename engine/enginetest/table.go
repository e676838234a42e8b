package enginetest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/riftdb/riftdb/engine"
)

// TableDef describes a table to create with CreateTable.
type TableDef struct {
	Name       string
	Columns    []engine.Column
	PrimaryKey []string
}

// Table is an in-memory table: rows keyed by their encoded primary key.
type Table struct {
	mu    sync.RWMutex
	def   TableDef
	rows  map[string]engine.Row
	order []string // insertion order of keys, for stable scans
}

func newTable(def TableDef) *Table {
	return &Table{def: def, rows: make(map[string]engine.Row)}
}

var _ engine.Table = (*Table)(nil)
var _ engine.TableManager = (*Table)(nil)

func (t *Table) Name() string                    { return t.def.Name }
func (t *Table) Columns() []engine.Column        { return t.def.Columns }
func (t *Table) PrimaryKey() []string            { return t.def.PrimaryKey }
func (t *Table) GetTable() (engine.Table, error) { return t, nil }

// DecodeKey turns the opaque primary-key blob a DML result carries back
// into a Row keyed by the table's primary-key columns (spec.md §4.1
// "Execute statement"). This reference engine's blobs are always the
// decimal text encoding of a single-column integer key; shopspring/decimal
// round-trips it without the precision loss strconv would risk for LONG
// columns.
func (t *Table) DecodeKey(blob []byte) (engine.Row, error) {
	if len(t.def.PrimaryKey) != 1 {
		return nil, fmt.Errorf("enginetest: composite primary keys are not supported by DecodeKey")
	}
	d, err := decimal.NewFromString(string(blob))
	if err != nil {
		return nil, fmt.Errorf("enginetest: malformed key blob: %w", err)
	}
	return engine.Row{t.def.PrimaryKey[0]: d.IntPart()}, nil
}

func (t *Table) encodeKey(row engine.Row) (string, error) {
	if len(t.def.PrimaryKey) != 1 {
		return "", fmt.Errorf("enginetest: composite primary keys are not supported")
	}
	col := t.def.PrimaryKey[0]
	v, ok := row[col]
	if !ok {
		return "", fmt.Errorf("enginetest: row is missing primary key column %q", col)
	}
	return fmt.Sprintf("%v", v), nil
}

func (t *Table) insert(row engine.Row) (keyBlob []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, err := t.encodeKey(row)
	if err != nil {
		return nil, err
	}
	if _, exists := t.rows[key]; !exists {
		t.order = append(t.order, key)
	}
	t.rows[key] = row
	return []byte(key), nil
}

func (t *Table) snapshot() []engine.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := append([]string(nil), t.order...)
	sort.Strings(keys)
	rows := make([]engine.Row, 0, len(keys))
	for _, k := range keys {
		if row, ok := t.rows[k]; ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *Table) deleteWhere(match func(engine.Row) bool) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed int64
	kept := t.order[:0]
	for _, k := range t.order {
		row, ok := t.rows[k]
		if ok && match(row) {
			delete(t.rows, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	t.order = kept
	return removed
}

func (t *Table) updateWhere(match func(engine.Row) bool, apply func(engine.Row)) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var updated int64
	for _, k := range t.order {
		row, ok := t.rows[k]
		if ok && match(row) {
			apply(row)
			updated++
		}
	}
	return updated
}
