package planner

import "testing"

func TestIsFastPath(t *testing.T) {
	cases := map[string]bool{
		"CREATE TABLE t (id INT)":  true,
		"DROP TABLE t":             true,
		"ALTER TABLE t ADD c INT":  true,
		"BEGIN":                    true,
		"COMMIT":                   true,
		"ROLLBACK":                 true,
		"TRUNCATE TABLE t":         true,
		"EXECUTE s1":               true,
		"SELECT * FROM t":          false,
		"INSERT INTO t VALUES (1)": false,
		"  CREATE INDEX i ON t(c)": false, // leading whitespace defeats the untrimmed prefix check
	}
	for query, want := range cases {
		if got := isFastPath(query); got != want {
			t.Errorf("isFastPath(%q) = %v, want %v", query, got, want)
		}
	}
}

func TestClassifyFallback(t *testing.T) {
	if classifyFallback("BEGIN") != classTransaction {
		t.Errorf("BEGIN should classify as a transaction")
	}
	if classifyFallback("COMMIT") != classTransaction {
		t.Errorf("COMMIT should classify as a transaction")
	}
	if classifyFallback("CREATE TABLE t (id INT)") != classDDL {
		t.Errorf("CREATE should classify as DDL")
	}
}
