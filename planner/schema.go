package planner

import (
	"github.com/dolthub/go-mysql-server/sql"

	"github.com/riftdb/riftdb/engine"
)

// rootSchema is the planner's view of every local table-space, built fresh
// for each Translate call (spec.md §4.2 step 1, Design Notes "Planner is
// stateless"). It is never cached across calls: the planner re-derives it
// from the engine's live table-space list every time, trading a schema
// rebuild for never observing stale metadata.
type rootSchema struct {
	tableSpaces map[string]*tableSpaceSchema
}

// tableSpaceSchema exposes one table-space's tables by name, with column
// types mapped from the engine's type codes to the planner's logical SQL
// types (spec.md §4.2 step 1).
type tableSpaceSchema struct {
	name   string
	tables map[string]*tableSchema
}

type tableSchema struct {
	name    string
	columns sql.Schema
}

// hasColumn reports whether name is one of the table's columns, used by
// validate to reject a Project/Update that names a column the resolved
// table doesn't have.
func (t *tableSchema) hasColumn(name string) bool {
	return t.column(name) != nil
}

// column returns the table's column named name, or nil if it has none.
func (t *tableSchema) column(name string) *sql.Column {
	for _, c := range t.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// buildRootSchema walks every local table-space the engine reports and
// resolves its tables, mirroring the way the source's DatabaseProvider
// enumerates schemas up front (catalog/provider.go "SwitchCatalog").
func buildRootSchema(eng engine.Engine) (*rootSchema, error) {
	root := &rootSchema{tableSpaces: map[string]*tableSpaceSchema{}}
	for _, ts := range eng.GetLocalTableSpaces() {
		tables, err := eng.GetAllTablesForPlanner(ts)
		if err != nil {
			return nil, ErrMetadata.New(err)
		}
		tsSchema := &tableSpaceSchema{name: ts, tables: map[string]*tableSchema{}}
		for _, t := range tables {
			tsSchema.tables[t.Name()] = toTableSchema(t)
		}
		root.tableSpaces[ts] = tsSchema
	}
	return root, nil
}

func toTableSchema(t engine.Table) *tableSchema {
	cols := t.Columns()
	schema := make(sql.Schema, len(cols))
	for i, c := range cols {
		schema[i] = &sql.Column{
			Name:     c.Name,
			Type:     fromEngineType(c.Type),
			Nullable: true,
			Source:   t.Name(),
		}
	}
	return &tableSchema{name: t.Name(), columns: schema}
}

func (r *rootSchema) resolveTable(tableSpace, table string) (*tableSchema, error) {
	tsSchema, ok := r.tableSpaces[tableSpace]
	if !ok {
		return nil, ErrMetadata.New("unknown table space " + tableSpace)
	}
	t, ok := tsSchema.tables[table]
	if !ok {
		return nil, ErrMetadata.New("unknown table " + table + " in " + tableSpace)
	}
	return t, nil
}
