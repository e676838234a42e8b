package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks session-lifecycle counters the way the teacher increments
// sql.StatusVariables on connect/query/close — here backed by
// prometheus/client_golang instead, since riftdb's transport is not a
// MySQL/Postgres wire server.
type Metrics struct {
	SessionsOpened   prometheus.Counter
	SessionsClosed   prometheus.Counter
	CursorsOpened    prometheus.Counter
	CursorsClosed    prometheus.Counter
	AuthSuccesses    prometheus.Counter
	AuthFailures     prometheus.Counter
	RollbacksOnClose prometheus.Counter
}

// NewMetrics registers the session counters on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with a global
// registry across cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_sessions_opened_total",
			Help: "Sessions created.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_sessions_closed_total",
			Help: "Sessions torn down.",
		}),
		CursorsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_cursors_opened_total",
			Help: "Scanner cursors registered.",
		}),
		CursorsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_cursors_closed_total",
			Help: "Scanner cursors removed, for any reason.",
		}),
		AuthSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_auth_successes_total",
			Help: "Completed SASL handshakes.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_auth_failures_total",
			Help: "SASL handshakes that ended in AuthFailed.",
		}),
		RollbacksOnClose: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftdb_teardown_rollbacks_total",
			Help: "Automatic rollbacks issued during session teardown.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SessionsOpened, m.SessionsClosed, m.CursorsOpened,
			m.CursorsClosed, m.AuthSuccesses, m.AuthFailures, m.RollbacksOnClose)
	}
	return m
}
