package session

import (
	"fmt"
	"strings"

	"github.com/riftdb/riftdb/engine"
	"github.com/riftdb/riftdb/zcopy"
)

// encodeRows serializes a result-set chunk's rows into a flat byte payload
// using the pooled zero-copy buffer (spec.md §5 "Zero-copy output
// buffer"): one reservation per row, released as soon as its bytes are
// written, mirroring the grow/release/extract contract zcopy.Buffer
// implements. The session's own reply still carries the structured
// columns/rows for consumers that don't decode wire bytes; this payload
// is what a real transport would frame over the wire instead of
// re-marshaling the structured fields itself.
func encodeRows(columns []string, rows []engine.Row) []byte {
	buf := zcopy.New()
	for _, row := range rows {
		line := encodeRow(columns, row)
		offset, handle := buf.Reserve(len(line))
		copy(buf.Region(offset, len(line)), line)
		buf.Release(handle)
	}
	return buf.Extract()
}

func encodeRow(columns []string, row engine.Row) []byte {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte('\t')
		}
		fmt.Fprintf(&b, "%s=%v", col, row[col])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
