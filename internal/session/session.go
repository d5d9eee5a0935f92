// Package session holds the process-wide bearer token and decides, once
// per token generation, when the session has expired.
package session

import (
	"sync"

	"railctl/internal/log"
)

// Reason says why the session changed.
type Reason int

const (
	LoggedIn Reason = iota
	LoggedOut
	Expired
	Reloaded
)

func (r Reason) String() string {
	switch r {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	case Expired:
		return "expired"
	case Reloaded:
		return "reloaded"
	}
	return "unknown"
}

// Event is delivered to subscribers after every session change.
type Event struct {
	Reason     Reason
	Generation uint64
	HasToken   bool
}

// Snapshot is the token as observed before issuing a request.
// Generation identifies which token the request carried.
type Snapshot struct {
	Token      string
	Generation uint64
}

// State is the shared session. It is safe for concurrent use.
type State struct {
	mu     sync.Mutex
	token  string
	gen    uint64
	store  Store
	subs   map[int]func(Event)
	nextID int
}

// New creates a State backed by store and loads any persisted token.
func New(store Store) (*State, error) {
	if store == nil {
		store = NewMemoryStore("")
	}
	token, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &State{token: token, store: store, subs: map[int]func(Event){}}, nil
}

// Snapshot returns the current token and its generation.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Token: s.token, Generation: s.gen}
}

// Token returns the current token, empty when logged out.
func (s *State) Token() string {
	return s.Snapshot().Token
}

// SetToken stores a new token and starts a new generation.
func (s *State) SetToken(token string) error {
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.gen++
	ev := Event{Reason: LoggedIn, Generation: s.gen, HasToken: token != ""}
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

// Logout clears the token without it counting as an expiry.
func (s *State) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.gen++
	ev := Event{Reason: LoggedOut, Generation: s.gen}
	s.mu.Unlock()

	err := s.store.Clear()
	s.notify(ev)
	return err
}

// Expire handles a 401/403 observed by a request issued under generation gen.
// Only the first call for the current generation clears the token and
// notifies subscribers; it returns true. Every other call is a no-op.
func (s *State) Expire(gen uint64) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.gen++
	ev := Event{Reason: Expired, Generation: s.gen}
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		log.LogWithError(err).Warn("failed to clear persisted token")
	}
	log.LogWithFields(log.F("generation", gen)).Info("session expired")
	s.notify(ev)
	return true
}

// Reload re-reads the store and adopts its token when it differs.
func (s *State) Reload() error {
	token, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	if token == s.token {
		s.mu.Unlock()
		return nil
	}
	s.token = token
	s.gen++
	ev := Event{Reason: Reloaded, Generation: s.gen, HasToken: token != ""}
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

// Subscribe registers fn for session events. The returned func unregisters it.
// fn runs on the goroutine that changed the session and must not block.
func (s *State) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *State) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
