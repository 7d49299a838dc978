// internal/watch/session.go
package watch

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickjoin/lobbyd/internal/models"
	"github.com/quickjoin/lobbyd/internal/notify"
)

// State is the lifecycle phase of a Session.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateActive
	StateClosed
)

// FetchFunc resolves the current full snapshot for a lobby code.
type FetchFunc func(ctx context.Context, code string) (*models.LobbySnapshot, error)

// SubscribeFunc opens a change subscription for one lobby, returning the
// event channel and an idempotent close function.
type SubscribeFunc func(ctx context.Context, lobbyID uuid.UUID) (<-chan notify.ChangeEvent, func(), error)

// Config wires a Session to its collaborators. Apply receives each freshly
// fetched snapshot together with a sequence number that increases by one per
// applied snapshot; a caller that buffers results can use it to discard
// anything stale.
type Config struct {
	Code    string
	LobbyID uuid.UUID

	Fetch     FetchFunc
	Subscribe SubscribeFunc
	Apply     func(seq uint64, snap *models.LobbySnapshot)

	Logger *logrus.Logger
}

// Session is one viewer's live view of a lobby's membership. Change events
// are treated purely as wake-up signals: every event triggers a full
// snapshot re-fetch, which always converges regardless of event duplication
// or reordering. Re-fetches are serialized by the session's run loop.
type Session struct {
	cfg Config

	mu      sync.Mutex
	state   State
	seq     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, done: make(chan struct{})}
}

// Start subscribes to the lobby's change feed and, once the subscription is
// acknowledged, launches the run loop with an initial full fetch. A session
// starts at most once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("watch: session already started or closed")
	}
	s.state = StateSubscribing
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	events, closeSub, err := s.cfg.Subscribe(runCtx, s.cfg.LobbyID)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Close won the race during subscription setup.
		s.mu.Unlock()
		closeSub()
		cancel()
		close(s.done)
		return errors.New("watch: session closed")
	}
	s.state = StateActive
	s.started = true
	s.mu.Unlock()

	go s.run(runCtx, events, closeSub)
	return nil
}

func (s *Session) run(ctx context.Context, events <-chan notify.ChangeEvent, closeSub func()) {
	defer close(s.done)
	defer closeSub()

	// Initial sync. The subscription is already live, so any mutation after
	// this fetch produces an event and another pass.
	s.resync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			s.resync(ctx)
		}
	}
}

// resync fetches the full snapshot and applies it. Application happens under
// the session lock behind a liveness check: a fetch that was in flight when
// Close was called is discarded, never applied.
func (s *Session) resync(ctx context.Context) {
	snap, err := s.cfg.Fetch(ctx, s.cfg.Code)
	if err != nil {
		if ctx.Err() == nil {
			s.cfg.Logger.WithError(err).WithField("code", s.cfg.Code).Warn("lobby re-fetch failed")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.seq++
	s.cfg.Apply(s.seq, snap)
}

// Close tears the session down: no event is delivered and no in-flight
// re-fetch result is applied once it returns. Idempotent and safe from any
// goroutine, on every exit path.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-s.done
	}
}

// State reports the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
