package session

import goerrors "gopkg.in/src-d/go-errors.v1"

// Error kinds (spec.md §7). Each is delivered as a single error reply to
// the originating request and is never retried by the session.
var (
	ErrAuthRequired    = goerrors.NewKind("authentication required")
	ErrAuthFailed      = goerrors.NewKind("authentication failed")
	ErrStatement       = goerrors.NewKind("statement execution failed: %v")
	ErrUnsupportedPlan = goerrors.NewKind("unsupported plan shape: %v")
	ErrUnknownCursor   = goerrors.NewKind("unknown scanner id %q, known ids: %v")
	ErrScan            = goerrors.NewKind("scan failed: %v")
	ErrUnknownMessage  = goerrors.NewKind("unknown message type: %v")
	ErrNotScan         = goerrors.NewKind("statement is not a scan")
)
