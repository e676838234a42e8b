package session

import (
	"context"

	"github.com/riftdb/riftdb/engine"
)

// Cursor is a resumable stream of rows owned by the session that opened it
// (spec.md §3, Design Notes "Cursor ownership"). The client-chosen scanner
// id is a lookup key only; it never extends the cursor's lifetime.
type Cursor struct {
	ID       string
	scanner  engine.Scanner
	schema   []engine.Column
	finished bool
}

func newCursor(id string, scanner engine.Scanner) *Cursor {
	return &Cursor{
		ID:      id,
		scanner: scanner,
		schema:  scanner.Schema(),
	}
}

// columnNames returns the declared schema's column names, in order.
func (c *Cursor) columnNames() []string {
	names := make([]string, len(c.schema))
	for i, col := range c.schema {
		names[i] = col.Name
	}
	return names
}

// consume pulls up to fetchSize rows and reports whether the cursor is
// finished immediately after (spec.md §4.1 "Open scanner" / "Fetch scanner
// data").
func (c *Cursor) consume(ctx context.Context, fetchSize int) ([]engine.Row, bool, error) {
	rows := make([]engine.Row, 0, fetchSize)
	for len(rows) < fetchSize {
		row, ok, err := c.scanner.Next(ctx)
		if err != nil {
			return rows, c.scanner.IsFinished(), err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	c.finished = c.scanner.IsFinished()
	return rows, c.finished, nil
}

// clientClose invokes the scanner's release hook. Idempotent.
func (c *Cursor) clientClose() error {
	return c.scanner.ClientClose()
}
