package authstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/starshipcosmos/authstore/principal"
	"github.com/starshipcosmos/authstore/session"
)

// Store holds the signed-in principal of one namespace and mirrors it into a
// Backend so it survives restarts. All methods are safe for concurrent use.
//
// At most one SignIn or SignOut runs at a time; a second call made while one
// is in flight fails with ErrOperationPending and leaves the state alone.
type Store[P principal.Principal] struct {
	cfg     Config
	backend session.Backend
	codec   session.Codec
	auth    Authenticator[P]
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	// notifyMu orders listener delivery; mu guards everything below it.
	notifyMu     sync.Mutex
	mu           sync.Mutex
	state        State[P]
	pending      bool
	closed       bool
	listeners    map[uint64]Listener[P]
	nextListener uint64

	ready    chan struct{}
	closedCh chan struct{}
}

/*
====================================
STATE ACCESS
====================================
*/

// State returns a snapshot of the current state.
func (s *Store[P]) State() State[P] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Principal returns a copy of the signed-in principal.
func (s *Store[P]) Principal() (P, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero P
	if s.state.Principal == nil {
		return zero, false
	}
	return principal.Copy(*s.state.Principal), true
}

// IsAuthenticated reports whether a principal is currently held.
func (s *Store[P]) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Principal != nil
}

// Namespace is the backend key holding this store's record.
func (s *Store[P]) Namespace() string {
	return s.cfg.Namespace
}

// Ready is closed once the persisted record has been read at startup.
func (s *Store[P]) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until startup rehydration has finished.
func (s *Store[P]) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}

	select {
	case <-s.ready:
		return nil
	case <-s.closedCh:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive every later state change in order.
// Listeners run synchronously and must not call SignIn, SignOut, ClearError
// or Close on the same store. The returned func removes the listener.
func (s *Store[P]) Subscribe(fn Listener[P]) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// MetricsSnapshot returns a copy of the store counters.
func (s *Store[P]) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports events discarded because the audit buffer was full.
func (s *Store[P]) AuditDropped() uint64 {
	return s.audit.Dropped()
}

/*
====================================
OPERATIONS
====================================
*/

// SignIn checks the credentials with the store's Authenticator and, on
// success, keeps the principal and persists it under the namespace key.
//
// A failed persist does not fail SignIn: the session lives in memory until
// the next restart.
func (s *Store[P]) SignIn(ctx context.Context, identifier, secret string) (P, error) {
	var zero P

	if err := s.WaitReady(ctx); err != nil {
		return zero, err
	}

	identifier = strings.TrimSpace(identifier)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrStoreClosed
	}
	if s.pending {
		s.mu.Unlock()
		s.metrics.Inc(MetricSignInPending)
		return zero, ErrOperationPending
	}
	s.mu.Unlock()

	if identifier == "" || secret == "" {
		s.metrics.Inc(MetricSignInRejected)
		s.update(false, func(st *State[P]) {
			st.Error = msgCredentialsRequired
		})
		return zero, validationError(msgCredentialsRequired)
	}

	var wasAuthenticated bool
	if !s.begin(func(st *State[P]) {
		wasAuthenticated = st.Principal != nil
		st.Phase = PhaseAuthenticating
		st.IsLoading = true
		st.Error = ""
	}) {
		return zero, ErrOperationPending
	}

	opID := uuid.NewString()
	start := time.Now()

	p, err := s.auth.Authenticate(ctx, identifier, secret)
	if err == nil {
		if verr := p.Validate(); verr != nil {
			err = verr
		}
	}
	if err != nil {
		opErr := authenticationError(err)
		s.metrics.Inc(MetricSignInFailure)
		s.logger.InfoContext(ctx, "sign in rejected", "operation_id", opID, "reason", opErr.Message)
		s.emitAudit(ctx, AuditEvent{
			EventType:   AuditSignIn,
			OperationID: opID,
			Success:     false,
			Error:       opErr.Message,
		})

		// A stale record from the replaced session must not come back on restart.
		if wasAuthenticated {
			s.purge(ctx, opID, "stale")
		}

		s.update(true, func(st *State[P]) {
			st.Phase = PhaseUnauthenticated
			st.Principal = nil
			st.IsLoading = false
			st.Error = opErr.Message
		})
		return zero, opErr
	}

	s.persist(ctx, opID, p)

	s.metrics.Inc(MetricSignInSuccess)
	s.metrics.Observe(MetricSignInLatency, time.Since(start))
	s.logger.InfoContext(ctx, "signed in", "operation_id", opID, "principal_id", p.PrincipalID())
	s.emitAudit(ctx, AuditEvent{
		EventType:   AuditSignIn,
		OperationID: opID,
		PrincipalID: p.PrincipalID(),
		Success:     true,
	})

	s.update(true, func(st *State[P]) {
		held := principal.Copy(p)
		st.Phase = PhaseAuthenticated
		st.Principal = &held
		st.IsLoading = false
		st.Error = ""
	})
	return principal.Copy(p), nil
}

// SignOut removes the persisted record and clears the principal. If the
// record cannot be removed the principal is kept, State.Error describes the
// failure and the returned error wraps ErrStorage.
func (s *Store[P]) SignOut(ctx context.Context) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}

	var (
		prevPhase     Phase
		prevPrincipal *P
	)
	if !s.begin(func(st *State[P]) {
		prevPhase = st.Phase
		prevPrincipal = st.Principal
		st.Phase = PhaseSigningOut
		st.IsLoading = true
		st.Error = ""
	}) {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return ErrStoreClosed
		}
		return ErrOperationPending
	}

	opID := uuid.NewString()
	principalID := ""
	if prevPrincipal != nil {
		principalID = (*prevPrincipal).PrincipalID()
	}

	opCtx, cancel := s.opContext(ctx)
	err := s.backend.Delete(opCtx, s.cfg.Namespace)
	cancel()

	if err != nil {
		opErr := storageError(msgSignOutFailed, err)
		s.metrics.Inc(MetricSignOutFailure)
		s.logger.WarnContext(ctx, "sign out failed", "operation_id", opID, "error", err)
		s.emitAudit(ctx, AuditEvent{
			EventType:   AuditSignOut,
			OperationID: opID,
			PrincipalID: principalID,
			Success:     false,
			Error:       err.Error(),
		})

		s.update(true, func(st *State[P]) {
			st.Phase = prevPhase
			st.Principal = prevPrincipal
			st.IsLoading = false
			st.Error = opErr.Message
		})
		return opErr
	}

	s.metrics.Inc(MetricSignOutSuccess)
	s.logger.InfoContext(ctx, "signed out", "operation_id", opID, "principal_id", principalID)
	s.emitAudit(ctx, AuditEvent{
		EventType:   AuditSignOut,
		OperationID: opID,
		PrincipalID: principalID,
		Success:     true,
	})

	s.update(true, func(st *State[P]) {
		st.Phase = PhaseUnauthenticated
		st.Principal = nil
		st.IsLoading = false
		st.Error = ""
	})
	return nil
}

// ClearError resets State.Error. Calling it with no error set is a no-op and
// notifies nobody.
func (s *Store[P]) ClearError() {
	s.mu.Lock()
	empty := s.state.Error == ""
	s.mu.Unlock()
	if empty {
		return
	}

	s.update(false, func(st *State[P]) {
		st.Error = ""
	})
}

// Close detaches the store. Operations still in flight finish their backend
// calls but their results are no longer applied, and no listener is called
// after Close returns.
func (s *Store[P]) Close() error {
	s.notifyMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return nil
	}
	s.closed = true
	s.listeners = map[uint64]Listener[P]{}
	close(s.closedCh)
	s.mu.Unlock()
	s.notifyMu.Unlock()

	s.audit.Close()
	s.logger.Debug("session store closed")
	return nil
}

/*
====================================
REHYDRATION
====================================
*/

func (s *Store[P]) rehydrate(ctx context.Context) {
	defer close(s.ready)

	opCtx, cancel := s.opContext(ctx)
	data, err := s.backend.Get(opCtx, s.cfg.Namespace)
	cancel()

	var restored *P
	switch {
	case errors.Is(err, session.ErrRecordNotFound):
		s.metrics.Inc(MetricRehydrateEmpty)
		s.logger.DebugContext(ctx, "no persisted session")
		s.emitAudit(ctx, AuditEvent{EventType: AuditRehydrateEmpty, Success: true})

	case err != nil:
		// Unreadable storage is treated as no session.
		s.metrics.Inc(MetricStorageReadFailure)
		s.metrics.Inc(MetricRehydrateEmpty)
		s.logger.WarnContext(ctx, "persisted session unreadable", "error", err)
		s.emitAudit(ctx, AuditEvent{EventType: AuditRehydrateEmpty, Success: false, Error: err.Error()})

	default:
		var p P
		derr := s.codec.Decode(data, &p)
		if derr == nil {
			derr = p.Validate()
		}
		if derr != nil {
			s.metrics.Inc(MetricRehydrateCorrupt)
			s.logger.WarnContext(ctx, "discarding corrupt persisted session", "error", derr)
			s.emitAudit(ctx, AuditEvent{EventType: AuditRehydrateCorrupt, Success: true, Error: derr.Error()})
			s.purge(ctx, "", "corrupt")
			break
		}

		restored = &p
		s.metrics.Inc(MetricRehydrateRestored)
		s.logger.DebugContext(ctx, "restored persisted session", "principal_id", p.PrincipalID())
		s.emitAudit(ctx, AuditEvent{
			EventType:   AuditRehydrateRestored,
			PrincipalID: p.PrincipalID(),
			Success:     true,
		})
	}

	s.update(false, func(st *State[P]) {
		st.IsLoading = false
		st.Error = ""
		if restored != nil {
			st.Phase = PhaseAuthenticated
			st.Principal = restored
			return
		}
		st.Phase = PhaseUnauthenticated
		st.Principal = nil
	})
}

/*
====================================
INTERNALS
====================================
*/

// begin marks an operation as pending and applies fn. It reports false when
// the store is closed or another operation is pending.
func (s *Store[P]) begin(fn func(*State[P])) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed || s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	fn(&s.state)
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// update applies fn unless the store is closed and notifies listeners.
// release ends the pending operation.
func (s *Store[P]) update(release bool, fn func(*State[P])) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if release {
		s.pending = false
	}
	if s.closed {
		s.mu.Unlock()
		return
	}
	before := s.state
	fn(&s.state)
	if s.state == before {
		s.mu.Unlock()
		return
	}
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Store[P]) snapshotLocked() (State[P], []Listener[P]) {
	listeners := make([]Listener[P], 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return s.state.clone(), listeners
}

func notify[P principal.Principal](listeners []Listener[P], snap State[P]) {
	for _, fn := range listeners {
		fn(snap.clone())
	}
}

func (s *Store[P]) persist(ctx context.Context, opID string, p P) {
	data, err := s.codec.Encode(p)
	if err == nil {
		opCtx, cancel := s.opContext(ctx)
		err = s.backend.Set(opCtx, s.cfg.Namespace, data)
		cancel()
	}
	if err == nil {
		return
	}

	s.metrics.Inc(MetricStorageWriteFailure)
	s.logger.WarnContext(ctx, "session kept in memory only", "operation_id", opID, "error", err)
	s.emitAudit(ctx, AuditEvent{
		EventType:   AuditPersistFailed,
		OperationID: opID,
		PrincipalID: p.PrincipalID(),
		Success:     false,
		Error:       err.Error(),
	})
}

func (s *Store[P]) purge(ctx context.Context, opID, reason string) {
	opCtx, cancel := s.opContext(ctx)
	err := s.backend.Delete(opCtx, s.cfg.Namespace)
	cancel()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to purge persisted session",
			"operation_id", opID, "reason", reason, "error", err)
	}
}

func (s *Store[P]) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

func (s *Store[P]) emitAudit(ctx context.Context, event AuditEvent) {
	s.audit.Emit(ctx, event)
}
