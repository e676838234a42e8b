package planner

import goerrors "gopkg.in/src-d/go-errors.v1"

// Error kinds raised while compiling a query (spec.md §4.2 "Error
// conditions"). All of these are surfaced by the session under the single
// StatementExecution reply kind; the distinct Go kinds here exist only so
// this package's own tests and logs can tell them apart.
var (
	ErrParse           = goerrors.NewKind("parse failed: %v")
	ErrValidate        = goerrors.NewKind("validation failed: %v")
	ErrUnsupportedType = goerrors.NewKind("unsupported type: %v")
	ErrUnsupportedNode = goerrors.NewKind("unsupported plan shape: %v")
	ErrMetadata        = goerrors.NewKind("metadata lookup failed: %v")
)
