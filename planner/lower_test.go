package planner

import (
	"testing"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/riftdb/riftdb/engine"
)

func TestParseBound(t *testing.T) {
	if got := parseBound(""); got != -1 {
		t.Errorf("parseBound(\"\") = %d, want -1", got)
	}
	if got := parseBound("10"); got != 10 {
		t.Errorf("parseBound(\"10\") = %d, want 10", got)
	}
	if got := parseBound("not-a-number"); got != -1 {
		t.Errorf("parseBound(non-numeric) = %d, want -1", got)
	}
}

func TestParseInt64(t *testing.T) {
	n, ok := parseInt64("42")
	if !ok || n != 42 {
		t.Errorf("parseInt64(42) = (%d, %v), want (42, true)", n, ok)
	}
	n, ok = parseInt64("-7")
	if !ok || n != -7 {
		t.Errorf("parseInt64(-7) = (%d, %v), want (-7, true)", n, ok)
	}
	if _, ok := parseInt64("12x"); ok {
		t.Errorf("parseInt64(12x) should fail")
	}
	if _, ok := parseInt64(""); ok {
		t.Errorf("parseInt64(\"\") should fail")
	}
}

func TestLowerFilterCarriesPredicate(t *testing.T) {
	cond, err := sqlparser.ParseExpr("id = 1")
	if err != nil {
		t.Fatalf("ParseExpr() error = %v", err)
	}
	node := &logicalNode{
		kind: logicalFilter,
		children: []*logicalNode{
			{kind: logicalTableScan, table: "users"},
		},
		predicate:     "id = 1",
		predicateNode: cond,
	}
	op, err := lower(node)
	if err != nil {
		t.Fatalf("lower() error = %v", err)
	}
	if op.Predicate.Source != "id = 1" {
		t.Errorf("op.Predicate.Source = %q, want %q", op.Predicate.Source, "id = 1")
	}
	match, err := op.Predicate.EvalBool(engine.Row{"id": int64(1)}, nil)
	if err != nil || !match {
		t.Errorf("EvalBool(id=1) = (%v, %v), want (true, nil)", match, err)
	}
	match, err = op.Predicate.EvalBool(engine.Row{"id": int64(2)}, nil)
	if err != nil || match {
		t.Errorf("EvalBool(id=2) = (%v, %v), want (false, nil)", match, err)
	}
	if len(op.Children) != 1 || op.Children[0].Table != "users" {
		t.Errorf("unexpected children: %+v", op.Children)
	}
}

func TestLowerAggregateRejectsUnknownFunction(t *testing.T) {
	node := &logicalNode{
		kind:       logicalAggregate,
		children:   []*logicalNode{{kind: logicalTableScan, table: "users"}},
		fieldNames: []string{"MEDIAN"},
		aggFuncs:   []string{"MEDIAN"},
		aggArgs:    []string{"age"},
	}
	if _, err := lower(node); err == nil {
		t.Error("lower() with an unsupported aggregate function should error")
	}
}
