package session

import (
	"testing"

	"github.com/riftdb/riftdb/engine"
)

func TestEncodeRowsProducesOneLinePerRow(t *testing.T) {
	columns := []string{"id", "name"}
	rows := []engine.Row{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": "bob"},
	}

	out := string(encodeRows(columns, rows))
	want := "id=1\tname=alice\nid=2\tname=bob\n"
	if out != want {
		t.Errorf("encodeRows = %q, want %q", out, want)
	}
}

func TestEncodeRowsEmpty(t *testing.T) {
	out := encodeRows([]string{"id"}, nil)
	if len(out) != 0 {
		t.Errorf("expected empty payload for zero rows, got %q", out)
	}
}
