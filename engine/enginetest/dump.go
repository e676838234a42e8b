package enginetest

import (
	"context"

	"github.com/riftdb/riftdb/engine"
	"github.com/riftdb/riftdb/proto"
)

// DumpTableSpace streams every table's full contents as resultset-chunk
// frames on ch, one table per scanner, matching the fetchSize the request
// carries. This reference implementation dumps synchronously; a real
// engine would do this incrementally against its WAL/snapshot.
func (e *Mock) DumpTableSpace(ctx context.Context, tableSpace, dumpID string, origRequest proto.Request, ch proto.Channel, fetchSize int) error {
	e.mu.RLock()
	ts, ok := e.tableSpaces[tableSpace]
	e.mu.RUnlock()
	if !ok {
		return errUnknownTableSpace(tableSpace)
	}

	for _, table := range ts.allTables() {
		rows := table.(*Table).snapshot()
		columns := columnNames(table.Columns())
		for start := 0; start < len(rows) || start == 0; start += fetchSize {
			end := start + fetchSize
			if end > len(rows) {
				end = len(rows)
			}
			chunk := rows[start:end]
			last := end >= len(rows)
			if err := ch.Send(proto.Reply{
				RequestID: origRequest.ID,
				Type:      proto.RepResultSetChunk,
				Params: map[string]any{
					proto.ParamDumpID: dumpID,
					"table":            table.Name(),
					"columns":          columns,
					"rows":             chunk,
					"last":             last,
				},
			}); err != nil {
				return err
			}
			if len(rows) == 0 {
				break
			}
		}
	}
	return nil
}

func columnNames(cols []engine.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
