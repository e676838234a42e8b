package planner

import "strings"

// classifyFallback implements spec.md §4.2 "Fast path": the query is
// delegated to the fallback planner unchanged. The fallback planner's own
// parsing is the engine's concern; the Planner's job is only to classify
// the outermost statement type so the session knows how to shape the
// result. Like isFastPath, this runs against the raw query text: by the
// time classifyFallback is called, isFastPath has already matched an
// untrimmed prefix, so there is no leading whitespace to strip.
func classifyFallback(query string) statementClass {
	switch {
	case strings.HasPrefix(query, "BEGIN"), strings.HasPrefix(query, "COMMIT"), strings.HasPrefix(query, "ROLLBACK"):
		return classTransaction
	default:
		// CREATE, DROP, ALTER, EXECUTE, TRUNCATE all execute as DDL-shaped
		// statements as far as the session's result-shaping switch cares.
		return classDDL
	}
}

type statementClass int

const (
	classDDL statementClass = iota
	classTransaction
)
