package planner

import "strings"

// fastPathPrefixes routes DDL, transaction control, EXECUTE and TRUNCATE
// around the full relational pipeline (spec.md §4.2 "Fast path"). The
// check is deliberately case-sensitive uppercase against the raw,
// un-folded query text, matching the incoming convention rather than the
// case-insensitive rule the rest of the dialect follows (Open Question
// #2, SPEC_FULL.md §5).
var fastPathPrefixes = []string{
	"CREATE", "DROP", "EXECUTE", "ALTER", "BEGIN", "COMMIT", "ROLLBACK", "TRUNCATE",
}

// isFastPath reports whether query should bypass the relational planner
// entirely and go straight to the fallback (DDL/TCL) path. The check runs
// against the raw query text, not a trimmed copy: leading whitespace
// defeats the prefix match, matching the source's documented behavior
// rather than "fixing" it (Open Question #2, SPEC_FULL.md §5).
func isFastPath(query string) bool {
	for _, prefix := range fastPathPrefixes {
		if strings.HasPrefix(query, prefix) {
			return true
		}
	}
	return false
}
