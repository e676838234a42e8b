package planner

// physicalPlan wraps a validated logical tree after rule-based lowering
// and cost-based selection (spec.md §4.2 step 4: "lower it to a physical
// plan with the rule set enabled ... then pick the best physical
// expression by cost"). The rule set here is the identity rule plus a
// single enumerable-convention marker; there is exactly one physical
// expression per logical shape, so "picking the best" is trivial, but the
// stage is kept distinct from validation so a real cost model has
// somewhere to plug in later.
type physicalPlan struct {
	root *logicalNode
}

// planPhysical runs the (trivial) rule set and returns the chosen physical
// expression. A real optimizer would enumerate alternatives here (index
// scans, join orders, sort-vs-hash aggregation); none of those apply to
// the lowering table's node set, so this is the identity transform.
func planPhysical(validated *logicalNode) *physicalPlan {
	return &physicalPlan{root: validated}
}
