package enginetest

import (
	"context"

	"github.com/riftdb/riftdb/engine"
)

// rowScanner is a finished snapshot iterator: the scan reads a consistent
// copy of the table taken at open-scanner time, matching how the source
// treats a cursor as resumable state independent of later writes.
type rowScanner struct {
	rows   []engine.Row
	schema []engine.Column
	pos    int
	closed bool
}

var _ engine.Scanner = (*rowScanner)(nil)

func newRowScanner(rows []engine.Row, schema []engine.Column) *rowScanner {
	return &rowScanner{rows: rows, schema: schema}
}

func (s *rowScanner) Next(ctx context.Context) (engine.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *rowScanner) Schema() []engine.Column { return s.schema }
func (s *rowScanner) IsFinished() bool        { return s.pos >= len(s.rows) }

func (s *rowScanner) ClientClose() error {
	s.closed = true
	return nil
}
