// Package planner implements the Planner (spec.md §4.2): a stateless
// SQL-to-operator-tree compiler. Translate is the only entry point the
// Session Peer calls; every other file in this package is a pipeline
// stage it drives.
package planner

import (
	"context"

	"github.com/riftdb/riftdb/engine"
)

// Planner compiles SQL text against one engine's live table-space schema.
// It holds no per-query state between calls (Design Notes, "Planner is
// stateless"); the only thing it retains across calls is the engine
// handle used to rebuild the schema each time.
type Planner struct {
	eng engine.Engine
}

var _ engine.Translator = (*Planner)(nil)

// New creates a Planner bound to eng. The Planner never caches schema or
// compiled plans across calls.
func New(eng engine.Engine) *Planner {
	return &Planner{eng: eng}
}

// Translate implements spec.md §4.2 "Public contract" and "Full pipeline".
func (p *Planner) Translate(
	ctx context.Context,
	tableSpace, query string,
	params []any,
	wantsScan, allowCache, returnValues bool,
	maxRows int,
) (engine.TranslatedQuery, error) {
	eval := engine.EvaluationContext{Query: query, Params: params}

	if isFastPath(query) {
		class := classifyFallback(query)
		statement := engine.StatementDDL
		if class == classTransaction {
			statement = engine.StatementTransaction
		}
		return engine.TranslatedQuery{
			Plan: engine.ExecutionPlan{Statement: statement, Root: engine.Operator{Kind: engine.OpUnknown}},
			Eval: eval,
		}, nil
	}

	schema, err := buildRootSchema(p.eng)
	if err != nil {
		return engine.TranslatedQuery{}, err
	}

	stmt, err := parseQuery(query)
	if err != nil {
		return engine.TranslatedQuery{}, err
	}

	logical, err := buildLogicalTree(stmt, tableSpace)
	if err != nil {
		return engine.TranslatedQuery{}, err
	}

	if err := validate(logical, schema); err != nil {
		return engine.TranslatedQuery{}, ErrValidate.New(err)
	}

	physical := planPhysical(logical)

	root, err := lower(physical.root)
	if err != nil {
		return engine.TranslatedQuery{}, err
	}

	statement := classifyStatement(logical, wantsScan)
	if wantsScan && statement != engine.StatementScan {
		return engine.TranslatedQuery{}, ErrUnsupportedNode.New("statement does not produce a scan")
	}

	return engine.TranslatedQuery{
		Plan: engine.ExecutionPlan{Statement: statement, Root: root},
		Eval: eval,
	}, nil
}

// classifyStatement maps the logical tree's outermost operation to the
// Statement the session's result-shaping switch dispatches on
// (spec.md §4.1 "Execute statement" / §4.2 step 6).
func classifyStatement(node *logicalNode, wantsScan bool) engine.Statement {
	switch node.kind {
	case logicalInsert, logicalUpdate, logicalDelete:
		return engine.StatementDML
	default:
		if wantsScan {
			return engine.StatementScan
		}
		return engine.StatementDML
	}
}
