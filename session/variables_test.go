package session

import "testing"

func TestParseSetStatement(t *testing.T) {
	cases := []struct {
		query     string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		{"SET foo = 'bar'", "foo", "bar", true},
		{"set foo=bar", "foo", "bar", true},
		{"  SET  foo  =  42  ", "foo", "42", true},
		{"SELECT 1", "", "", false},
		{"SET", "", "", false},
		{"SET =bar", "", "", false},
	}
	for _, c := range cases {
		name, value, ok := parseSetStatement(c.query)
		if ok != c.wantOK || name != c.wantName || value != c.wantValue {
			t.Errorf("parseSetStatement(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.query, name, value, ok, c.wantName, c.wantValue, c.wantOK)
		}
	}
}

func TestVariablesSetGetClear(t *testing.T) {
	v := newVariables()
	if _, ok := v.Get("x"); ok {
		t.Fatal("expected unset variable to report ok=false")
	}
	v.Set("x", "1")
	if val, ok := v.Get("x"); !ok || val != "1" {
		t.Fatalf("got (%q, %v), want (\"1\", true)", val, ok)
	}
	v.clear()
	if _, ok := v.Get("x"); ok {
		t.Fatal("expected clear to remove previously set variables")
	}
}
