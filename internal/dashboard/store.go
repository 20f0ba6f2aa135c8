package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStoreClosed is returned by Dispatch once the store's writer loop has stopped.
var ErrStoreClosed = errors.New("dashboard: store closed")

type request struct {
	action Action
	reply  chan State
}

// Store owns the dashboard State. Every mutation goes through Dispatch and is applied
// by the single goroutine running Run, so readers only ever observe whole states.
type Store struct {
	policy  Policy
	queue   chan request
	current atomic.Pointer[State]
	done    chan struct{}
	started atomic.Bool

	mu      sync.Mutex
	nextSub int
	subs    map[int]chan uint64
}

// NewStore creates a store holding the empty state.
func NewStore(policy Policy) *Store {
	s := &Store{
		policy: policy,
		queue:  make(chan request),
		done:   make(chan struct{}),
		subs:   make(map[int]chan uint64),
	}
	s.current.Store(&State{})
	return s
}

// State returns the latest published state.
func (s *Store) State() State {
	return *s.current.Load()
}

// Policy returns the reduce policy the store was built with.
func (s *Store) Policy() Policy {
	return s.policy
}

// Run applies queued actions until ctx is cancelled. It must be called once.
func (s *Store) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("dashboard: store already running")
	}
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.queue:
			next := Reduce(*s.current.Load(), req.action, s.policy)
			s.current.Store(&next)
			req.reply <- next
			s.notify(next.Version)
		}
	}
}

// Dispatch enqueues a and waits for the resulting state.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	req := request{action: a, reply: make(chan State, 1)}
	select {
	case s.queue <- req:
	case <-s.done:
		return State{}, ErrStoreClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	return <-req.reply, nil
}

// Subscribe returns a channel that receives the newest version after each change.
// Notifications coalesce: a slow reader sees only the latest version.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- version:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- version:
			default:
			}
		}
	}
}
