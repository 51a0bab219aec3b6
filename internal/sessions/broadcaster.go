package sessions

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

// Observer receives a fresh snapshot of the full session list on every
// mutation. The slice and its elements are copies, observers cannot reach
// the broadcaster's internal state through them.
type Observer func(snapshot []Session)

// Broadcaster is the single source of truth for all in-flight and finished
// upload sessions. Uploads run as separate goroutines, so unlike a
// cooperative event loop the table needs a real mutex.
type Broadcaster struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*Session
	order     []uuid.UUID
	observers map[uuid.UUID]Observer

	pending    []delivery
	delivering bool
}

// delivery pairs a snapshot with the observers subscribed at the moment
// the mutation happened.
type delivery struct {
	snapshot  []Session
	observers []Observer
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		sessions:  make(map[uuid.UUID]*Session),
		observers: make(map[uuid.UUID]Observer),
	}
}

// Register creates a new uploading session and queues its notification
// before returning, so observers see the session before any of its
// transfer progress.
func (b *Broadcaster) Register(kind media.Kind, filename string, contentHash string) Session {
	b.mu.Lock()
	session := newSession(kind, filename, contentHash)
	b.sessions[session.Id] = session
	b.order = append(b.order, session.Id)
	registered := *session
	b.notifyLocked()

	return registered
}

func (b *Broadcaster) SetTransportHandle(id uuid.UUID, handle string) error {
	return b.mutate(id, func(s *Session) error {
		if s.terminal() {
			return ErrSessionTerminal
		}
		s.TransportHandle = handle
		return nil
	})
}

func (b *Broadcaster) UpdateProgress(id uuid.UUID, progress int) error {
	return b.mutate(id, func(s *Session) error {
		return s.advanceProgress(progress)
	})
}

func (b *Broadcaster) Complete(id uuid.UUID) error {
	return b.mutate(id, func(s *Session) error {
		return s.complete()
	})
}

func (b *Broadcaster) Fail(id uuid.UUID, reason string) error {
	return b.mutate(id, func(s *Session) error {
		return s.fail(reason)
	})
}

func (b *Broadcaster) Get(id uuid.UUID) (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[id]
	if !ok {
		return Session{}, false
	}

	return *session, true
}

func (b *Broadcaster) Snapshot() []Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.snapshotLocked()
}

// ClearFinished drops terminal sessions from the table and notifies
// observers. In-flight sessions are never cleared.
func (b *Broadcaster) ClearFinished() int {
	b.mu.Lock()

	var kept []uuid.UUID
	cleared := 0
	for _, id := range b.order {
		if b.sessions[id].terminal() {
			delete(b.sessions, id)
			cleared++
			continue
		}
		kept = append(kept, id)
	}
	b.order = kept

	b.notifyLocked()
	return cleared
}

// Subscribe registers an observer and returns a handle for Unsubscribe.
// Safe to call from within a notification callback; the new observer is
// included from the next notification on.
func (b *Broadcaster) Subscribe(observer Observer) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	b.observers[id] = observer
	return id
}

func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.observers, id)
}

func (b *Broadcaster) mutate(id uuid.UUID, fn func(*Session) error) error {
	b.mu.Lock()

	session, ok := b.sessions[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("unknown session %s: %w", id, apiError.ErrApiSessionNotFound)
	}

	err := fn(session)
	if err != nil {
		b.mu.Unlock()
		return err
	}

	b.notifyLocked()
	return nil
}

func (b *Broadcaster) snapshotLocked() []Session {
	snapshot := make([]Session, 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, *b.sessions[id])
	}
	return snapshot
}

// notifyLocked queues a snapshot for delivery and unlocks. Queueing
// happens under the lock, so delivery order equals mutation order even
// when sessions mutate from concurrent goroutines; whichever goroutine
// finds the queue idle drains it in sequence. Observers run with the lock
// released, so Subscribe/Unsubscribe stay callable from inside a callback.
func (b *Broadcaster) notifyLocked() {
	observers := make([]Observer, 0, len(b.observers))
	for _, observer := range b.observers {
		observers = append(observers, observer)
	}
	b.pending = append(b.pending, delivery{
		snapshot:  b.snapshotLocked(),
		observers: observers,
	})

	if b.delivering {
		// the draining goroutine picks this up in order
		b.mu.Unlock()
		return
	}

	b.delivering = true
	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]

		b.mu.Unlock()
		for _, observer := range next.observers {
			observer(next.snapshot)
		}
		b.mu.Lock()
	}
	b.delivering = false
	b.mu.Unlock()
}
