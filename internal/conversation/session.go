package conversation

import (
	"context"
	"sync"
	"time"
)

// State is a principal's position in the input-collection flow.
type State int

const (
	Idle State = iota
	AwaitingInput
)

func (s State) String() string {
	if s == AwaitingInput {
		return "awaiting_input"
	}
	return "idle"
}

type session struct {
	state    State
	lastSeen time.Time
}

// Sessions is the in-memory conversation state keyed by principal id. Only
// non-idle principals occupy an entry; a missing entry reads as Idle.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*session
	ttl time.Duration
	now func() time.Time
}

// NewSessions returns a store whose entries expire after ttl without activity.
// A non-positive ttl disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{m: make(map[string]*session), ttl: ttl, now: time.Now}
}

// Get returns the current state for id.
func (s *Sessions) Get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return Idle
	}
	if s.expired(sess, s.now()) {
		delete(s.m, id)
		return Idle
	}
	return sess.state
}

// Set records st for id. Setting Idle removes the entry.
func (s *Sessions) Set(id string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == Idle {
		delete(s.m, id)
		return
	}
	s.m[id] = &session{state: st, lastSeen: s.now()}
}

// Reset returns id to Idle.
func (s *Sessions) Reset(id string) { s.Set(id, Idle) }

// Len reports the number of non-idle sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Reap drops sessions idle for longer than the ttl and returns how many.
func (s *Sessions) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.m {
		if s.expired(sess, now) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Run reaps every interval until ctx ends.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Reap()
		}
	}
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
