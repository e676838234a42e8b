// Copyright 2024-2025 ApeCloud, Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session implements the Session Peer (spec.md §4.1): the
// per-connection coordinator that drives authentication, dispatches
// authenticated requests to the engine, and owns cursor and
// tracked-transaction lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/riftdb/riftdb/engine"
	"github.com/riftdb/riftdb/proto"
)

const defaultFetchSize = 10

// Session owns one client channel (spec.md §3). Message handling is
// sequential in arrival order on this session, but it may call the engine
// concurrently with other sessions.
type Session struct {
	ID          uint64
	RemoteAddr  string
	ConnectedAt time.Time

	eng     engine.Engine
	store   CredentialStore
	metrics *Metrics
	log     *logrus.Entry

	mu            sync.Mutex // guards authenticator/authenticated/username/closed
	authenticator Authenticator
	authenticated bool
	username      string
	closed        bool

	cursors sync.Map // scannerID string -> *Cursor
	tracked sync.Map // tableSpace string -> *txSet

	Variables *Variables
}

// New creates a Session bound to a freshly accepted channel. eng is the
// storage engine collaborator (spec.md §6); store resolves SASL
// credentials.
func New(id uint64, remoteAddr string, eng engine.Engine, store CredentialStore, metrics *Metrics) *Session {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Session{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		eng:         eng,
		store:       store,
		metrics:     metrics,
		Variables:   newVariables(),
		log: logrus.WithFields(logrus.Fields{
			"sessionId": id,
			"remote":    remoteAddr,
		}),
	}
	metrics.SessionsOpened.Inc()
	return s
}

// Authenticated reports whether the SASL handshake completed successfully.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Username returns the latched username, or "" before authentication
// completes.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Dispatch routes one inbound request to its handler and always produces
// exactly one reply (spec.md §4.1, §7).
func (s *Session) Dispatch(ctx context.Context, req proto.Request) proto.Reply {
	switch req.Type {
	case proto.ReqSASLTokenRequest:
		return s.handleSASLTokenRequest(req)
	case proto.ReqSASLTokenStep:
		return s.handleSASLTokenStep(req)
	case proto.ReqExecuteStatement:
		return s.requireAuth(req, s.handleExecuteStatement)
	case proto.ReqOpenScanner:
		return s.requireAuth(req, s.handleOpenScanner)
	case proto.ReqFetchScannerData:
		return s.requireAuth(req, s.handleFetchScannerData)
	case proto.ReqCloseScanner:
		return s.requireAuth(req, s.handleCloseScanner)
	case proto.ReqRequestTableSpaceDump:
		return s.requireAuth(req, s.handleRequestTableSpaceDump)
	default:
		return proto.NewErrorReply(req.ID, ErrUnknownMessage.New(req.Type), nil)
	}
}

// requireAuth enforces the Unauthenticated -> Authenticated state machine
// (spec.md §4.1 "State machine"): only the two SASL messages are legal
// before authentication completes.
func (s *Session) requireAuth(req proto.Request, handler func(context.Context, proto.Request) proto.Reply) proto.Reply {
	if !s.Authenticated() {
		return proto.NewErrorReply(req.ID, ErrAuthRequired.New(), nil)
	}
	return handler(context.Background(), req)
}

// handleSASLTokenRequest implements spec.md §4.1 "SASL token request".
func (s *Session) handleSASLTokenRequest(req proto.Request) proto.Reply {
	mech, _ := req.Params[proto.ParamMech].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticated {
		return proto.NewErrorReply(req.ID, ErrAuthFailed.New(), nil)
	}
	if s.authenticator == nil {
		auth, err := NewAuthenticator(mech, s.store)
		if err != nil {
			s.log.WithField("mech", mech).Warnln("failed to create authenticator")
			return proto.NewErrorReply(req.ID, ErrAuthFailed.New(), nil)
		}
		s.authenticator = auth
	}

	challenge, err := s.authenticator.Start()
	if err != nil {
		s.log.WithField("mech", mech).Warnln("authenticator start failed")
		return proto.NewErrorReply(req.ID, ErrAuthFailed.New(), nil)
	}
	return proto.NewAck(req.ID, map[string]any{proto.ParamToken: challenge})
}

// handleSASLTokenStep implements spec.md §4.1 "SASL token step".
func (s *Session) handleSASLTokenStep(req proto.Request) proto.Reply {
	token, _ := req.Params[proto.ParamToken].([]byte)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticator == nil {
		return proto.NewErrorReply(req.ID, ErrAuthFailed.New(), nil)
	}

	challenge, err := s.authenticator.Response(token)
	if err != nil {
		s.metrics.AuthFailures.Inc()
		// Auth logging severity: the source emits this at error-grade
		// severity; a conventional choice is Warn (REDESIGN FLAG #3).
		s.log.Warnln("authentication step failed")
		if _, ok := err.(*AuthProtocolError); ok {
			return proto.NewErrorReply(req.ID, ErrAuthFailed.New(), nil)
		}
		return proto.NewErrorReply(req.ID, errors.New("authentication error"), nil)
	}

	if s.authenticator.IsComplete() {
		s.username = s.authenticator.GetUserName()
		s.authenticated = true
		s.authenticator = nil
		s.metrics.AuthSuccesses.Inc()
		s.log.WithField("user", s.username).Infoln("authenticated")
	}
	return proto.NewAck(req.ID, map[string]any{proto.ParamToken: challenge})
}

// handleExecuteStatement implements spec.md §4.1 "Execute statement".
func (s *Session) handleExecuteStatement(ctx context.Context, req proto.Request) proto.Reply {
	txParam, _ := req.Params[proto.ParamTx].(int64)
	tx := engine.TxID(txParam)
	query, _ := req.Params[proto.ParamQuery].(string)
	tableSpace, _ := req.Params[proto.ParamTableSpace].(string)
	params, _ := req.Params[proto.ParamParams].([]any)

	if name, value, ok := parseSetStatement(query); ok {
		s.Variables.Set(name, value)
		return proto.Reply{
			RequestID: req.ID,
			Type:      proto.RepExecuteStatementResult,
			Params:    map[string]any{"updateCount": int64(0), "otherData": nil},
		}
	}

	translated, err := s.eng.GetTranslator().Translate(ctx, tableSpace, query, params, false, true, true, 0)
	if err != nil {
		return s.statementErrorReply(req.ID, err)
	}

	result, err := s.eng.ExecutePlan(ctx, translated.Plan, translated.Eval, tx)
	if err != nil {
		return s.statementErrorReply(req.ID, err)
	}

	switch result.Kind {
	case engine.ResultDML:
		data := map[string]any{}
		if result.Key != nil && result.Table != "" {
			if key, derr := s.decodeKey(ctx, tableSpace, result.Table, result.Key); derr == nil {
				data[proto.ParamKey] = key
			}
		}
		return proto.Reply{
			RequestID: req.ID,
			Type:      proto.RepExecuteStatementResult,
			Params:    map[string]any{"updateCount": result.UpdateCount, "otherData": data},
		}
	case engine.ResultGet:
		if !result.Found {
			return proto.Reply{
				RequestID: req.ID,
				Type:      proto.RepExecuteStatementResult,
				Params:    map[string]any{"updateCount": int64(0), "otherData": nil},
			}
		}
		return proto.Reply{
			RequestID: req.ID,
			Type:      proto.RepExecuteStatementResult,
			Params:    map[string]any{"updateCount": int64(1), "otherData": result.GetRow},
		}
	case engine.ResultTransaction:
		s.trackTransaction(tableSpace, result)
		return proto.Reply{
			RequestID: req.ID,
			Type:      proto.RepExecuteStatementResult,
			Params:    map[string]any{"updateCount": int64(1), "otherData": map[string]any{proto.ParamTx: int64(result.Tx)}},
		}
	case engine.ResultDDL:
		return proto.Reply{
			RequestID: req.ID,
			Type:      proto.RepExecuteStatementResult,
			Params:    map[string]any{"updateCount": int64(1), "otherData": nil},
		}
	default:
		return proto.NewErrorReply(req.ID, ErrStatement.New("unknown result kind"), nil)
	}
}

// trackTransaction applies a BEGIN/COMMIT/ROLLBACK outcome to the
// per-table-space tracked set (spec.md §3 Invariant 3).
func (s *Session) trackTransaction(tableSpace string, result engine.Result) {
	set := s.txSetFor(tableSpace)
	switch result.TxOutcome {
	case engine.TxBegin:
		set.add(result.Tx)
	case engine.TxCommit, engine.TxRollback:
		set.remove(result.Tx)
	}
}

func (s *Session) txSetFor(tableSpace string) *txSet {
	actual, _ := s.tracked.LoadOrStore(tableSpace, newTxSet())
	return actual.(*txSet)
}

// decodeKey resolves the target table's schema and decodes the primary-key
// blob against it (spec.md §4.1 "Execute statement", DML result shaping).
func (s *Session) decodeKey(ctx context.Context, tableSpace, table string, blob []byte) (engine.Row, error) {
	tsm, err := s.eng.GetTableSpaceManager(tableSpace)
	if err != nil {
		return nil, err
	}
	tm, err := tsm.GetTableManager(table)
	if err != nil {
		return nil, err
	}
	t, err := tm.GetTable()
	if err != nil {
		return nil, err
	}
	return t.DecodeKey(blob)
}

// handleOpenScanner implements spec.md §4.1 "Open scanner".
func (s *Session) handleOpenScanner(ctx context.Context, req proto.Request) proto.Reply {
	tableSpace, _ := req.Params[proto.ParamTableSpace].(string)
	txParam, _ := req.Params[proto.ParamTx].(int64)
	tx := engine.TxID(txParam)
	query, _ := req.Params[proto.ParamQuery].(string)
	scannerID, _ := req.Params[proto.ParamScannerID].(string)
	if scannerID == "" {
		scannerID = uuid.NewString()
	}
	fetchSize := intParam(req.Params, proto.ParamFetchSize, defaultFetchSize)
	maxRows := intParam(req.Params, proto.ParamMaxRows, 0)

	translated, err := s.eng.GetTranslator().Translate(ctx, tableSpace, query, nil, true, true, false, maxRows)
	if err != nil {
		return s.statementErrorReply(req.ID, err)
	}
	if translated.Plan.Statement != engine.StatementScan {
		return s.statementErrorReply(req.ID, ErrNotScan.New())
	}

	result, err := s.eng.ExecutePlan(ctx, translated.Plan, translated.Eval, tx)
	if err != nil {
		return s.statementErrorReply(req.ID, err)
	}
	if result.Kind != engine.ResultScan {
		return s.statementErrorReply(req.ID, ErrStatement.New("plan did not produce a scan result"))
	}

	scanner := result.Scanner
	if maxRows > 0 {
		scanner = newBoundedScanner(scanner, maxRows)
	}
	cursor := newCursor(scannerID, scanner)

	rows, last, err := cursor.consume(ctx, fetchSize)
	if err != nil {
		return s.statementErrorReply(req.ID, err)
	}
	if !last {
		s.cursors.Store(scannerID, cursor)
		s.metrics.CursorsOpened.Inc()
	}
	return resultSetChunkReply(req.ID, scannerID, cursor.columnNames(), rows, last)
}

// handleFetchScannerData implements spec.md §4.1 "Fetch scanner data".
func (s *Session) handleFetchScannerData(ctx context.Context, req proto.Request) proto.Reply {
	scannerID, _ := req.Params[proto.ParamScannerID].(string)
	fetchSize := intParam(req.Params, proto.ParamFetchSize, defaultFetchSize)

	entry, ok := s.cursors.Load(scannerID)
	if !ok {
		return proto.NewErrorReply(req.ID, ErrUnknownCursor.New(scannerID, s.knownCursorIDs()),
			map[string]any{proto.ParamScannerID: scannerID})
	}
	cursor := entry.(*Cursor)

	rows, last, err := cursor.consume(ctx, fetchSize)
	if err != nil {
		s.removeCursor(scannerID)
		return proto.NewErrorReply(req.ID, ErrScan.New(err), map[string]any{proto.ParamScannerID: scannerID})
	}
	if last {
		s.removeCursor(scannerID)
	}
	return resultSetChunkReply(req.ID, scannerID, cursor.columnNames(), rows, last)
}

// handleCloseScanner implements spec.md §4.1 "Close scanner". The source's
// dispatcher has no explicit terminator before its default arm (Open
// Question #1 in spec.md §9); this implementation takes the "likely
// intent" reading and always replies distinctly for an unknown id rather
// than falling through to UnknownMessageType.
func (s *Session) handleCloseScanner(ctx context.Context, req proto.Request) proto.Reply {
	scannerID, _ := req.Params[proto.ParamScannerID].(string)

	entry, ok := s.cursors.Load(scannerID)
	if !ok {
		return proto.NewErrorReply(req.ID, ErrUnknownCursor.New(scannerID, s.knownCursorIDs()),
			map[string]any{proto.ParamScannerID: scannerID})
	}
	cursor := entry.(*Cursor)
	s.removeCursor(scannerID)
	if err := cursor.clientClose(); err != nil {
		s.log.WithField("scannerId", scannerID).WithError(err).Warnln("failed to close cursor")
	}
	return proto.NewAck(req.ID, nil)
}

// handleRequestTableSpaceDump implements spec.md §4.1 "Request table-space
// dump". The session owns none of the dump state; it only forwards the
// channel to the engine.
func (s *Session) handleRequestTableSpaceDump(ctx context.Context, req proto.Request) proto.Reply {
	// The caller supplies the Channel out of band (via DispatchWithChannel),
	// which handles dumps itself. Dispatch alone cannot stream frames, so a
	// dump request routed here by Dispatch always fails.
	return proto.NewErrorReply(req.ID, ErrStatement.New("dump requires a channel"), nil)
}

// DispatchWithChannel is Dispatch for request types that stream frames
// directly on ch rather than producing a single reply (currently only
// request-tablespace-dump).
func (s *Session) DispatchWithChannel(ctx context.Context, req proto.Request, ch proto.Channel) proto.Reply {
	if req.Type != proto.ReqRequestTableSpaceDump {
		return s.Dispatch(ctx, req)
	}
	if !s.Authenticated() {
		return proto.NewErrorReply(req.ID, ErrAuthRequired.New(), nil)
	}

	tableSpace, _ := req.Params[proto.ParamTableSpace].(string)
	dumpID, _ := req.Params[proto.ParamDumpID].(string)
	fetchSize := intParam(req.Params, proto.ParamFetchSize, defaultFetchSize)

	if err := s.eng.DumpTableSpace(ctx, tableSpace, dumpID, req, ch, fetchSize); err != nil {
		return s.statementErrorReply(req.ID, err)
	}
	return proto.NewAck(req.ID, nil)
}

// Close tears the session down: every tracked (tableSpace, tx) pair is
// rolled back, every remaining cursor is closed, and all tracking
// structures are cleared (spec.md §4.1 "Channel closed"). After Close
// returns, no later engine callback may resurrect session state
// (spec.md §3 Invariant 5).
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.tracked.Range(func(key, value any) bool {
		tableSpace := key.(string)
		set := value.(*txSet)
		for _, tx := range set.snapshot() {
			eval := engine.EvaluationContext{Query: "ROLLBACK", Params: []any{tableSpace}}
			if err := s.eng.ExecuteStatement(ctx, engine.StatementTransaction, eval, tx); err != nil {
				s.log.WithFields(logrus.Fields{"tableSpace": tableSpace, "tx": tx}).
					WithError(err).Warnln("rollback on teardown failed")
			}
			s.metrics.RollbacksOnClose.Inc()
		}
		s.tracked.Delete(key)
		return true
	})

	s.cursors.Range(func(key, value any) bool {
		cursor := value.(*Cursor)
		if err := cursor.clientClose(); err != nil {
			s.log.WithField("scannerId", key).WithError(err).Warnln("failed to close cursor on teardown")
		}
		s.removeCursor(key.(string))
		return true
	})

	s.metrics.SessionsClosed.Inc()
}

// Reset tears the session down exactly as Close does and then reopens it
// for reuse, inspired by the teacher's ConnectionClosed/NewConnection
// pairing on connection reset. Production traffic never calls this; it
// exists so tests can exercise repeated teardown-then-reopen without a
// real transport handing out a fresh Session per connection.
func (s *Session) Reset(ctx context.Context) {
	s.Close(ctx)

	s.mu.Lock()
	s.closed = false
	s.authenticated = false
	s.authenticator = nil
	s.username = ""
	s.mu.Unlock()

	s.Variables.clear()
	s.metrics.SessionsOpened.Inc()
}

func (s *Session) removeCursor(id string) {
	if _, ok := s.cursors.LoadAndDelete(id); ok {
		s.metrics.CursorsClosed.Inc()
	}
}

func (s *Session) knownCursorIDs() []string {
	ids := []string{}
	s.cursors.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// statementErrorReply wraps an execution/planning failure as a
// StatementExecution error, attaching the not-leader marker when the
// failure is a leadership redirect (spec.md §7 kind 3).
func (s *Session) statementErrorReply(requestID uint64, err error) proto.Reply {
	var notLeader *engine.NotLeaderError
	if asNotLeader(err, &notLeader) {
		return proto.NewErrorReply(requestID, ErrStatement.New(err), map[string]any{proto.ParamNotLeader: true})
	}
	return proto.NewErrorReply(requestID, ErrStatement.New(err), nil)
}

func asNotLeader(err error, target **engine.NotLeaderError) bool {
	for err != nil {
		if nl, ok := err.(*engine.NotLeaderError); ok {
			*target = nl
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

func resultSetChunkReply(requestID uint64, scannerID string, columns []string, rows []engine.Row, last bool) proto.Reply {
	return proto.Reply{
		RequestID: requestID,
		Type:      proto.RepResultSetChunk,
		Params: map[string]any{
			proto.ParamScannerID: scannerID,
			"columns":            columns,
			"rows":               rows,
			"last":               last,
			"payload":            encodeRows(columns, rows),
		},
	}
}

// txSet is a concurrent-safe set of transaction ids tracked for one table
// space (Design Notes, "Concurrency container choice").
type txSet struct {
	mu  sync.Mutex
	ids map[engine.TxID]struct{}
}

func newTxSet() *txSet {
	return &txSet{ids: make(map[engine.TxID]struct{})}
}

func (t *txSet) add(id engine.TxID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids[id] = struct{}{}
}

func (t *txSet) remove(id engine.TxID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ids, id)
}

func (t *txSet) snapshot() []engine.TxID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]engine.TxID, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	return out
}

// boundedScanner wraps an engine.Scanner to cap the number of rows it will
// ever yield (spec.md §4.1 "Open scanner", maxRows > 0).
type boundedScanner struct {
	engine.Scanner
	remaining int64
	emitted   atomic.Int64
}

func newBoundedScanner(inner engine.Scanner, maxRows int) *boundedScanner {
	return &boundedScanner{Scanner: inner, remaining: int64(maxRows)}
}

func (b *boundedScanner) Next(ctx context.Context) (engine.Row, bool, error) {
	if b.emitted.Load() >= b.remaining {
		return nil, false, nil
	}
	row, ok, err := b.Scanner.Next(ctx)
	if ok {
		b.emitted.Add(1)
	}
	return row, ok, err
}

func (b *boundedScanner) IsFinished() bool {
	return b.emitted.Load() >= b.remaining || b.Scanner.IsFinished()
}
