package bot

import (
	"sync"
	"time"

	"github.com/danverbz/lpfolio/internal/extract"
)

// State is what the bot is waiting for next in a chat.
type State int

const (
	StateIdle State = iota
	StateAwaitingPortfolio
	StateAwaitingManualBalance
	StatePreviewing
)

// session is one chat's in-flight interaction. Ephemeral by design: a process
// restart drops it and the user simply re-pastes their data.
type session struct {
	state   State
	pending *extract.Record // extracted but not yet saved
	slot    int             // chosen slot while waiting for a manual balance
	touched time.Time
}

// Sessions is the per-chat session store. Entries expire after the TTL so an
// abandoned preview does not linger forever.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[int64]*session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, m: make(map[int64]*session)}
}

// get returns the live session for a chat, evicting it if expired.
// Callers must hold s.mu.
func (s *Sessions) get(chatID int64) *session {
	sess, ok := s.m[chatID]
	if !ok {
		return nil
	}
	if time.Since(sess.touched) > s.ttl {
		delete(s.m, chatID)
		return nil
	}
	return sess
}

// State returns the chat's current state, StateIdle when nothing is pending.
func (s *Sessions) State(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.get(chatID); sess != nil {
		return sess.state
	}
	return StateIdle
}

// StartInput moves the chat into portfolio-capture mode, discarding anything
// previously pending.
func (s *Sessions) StartInput(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = &session{state: StateAwaitingPortfolio, touched: time.Now()}
}

// SetPreview stores a successful extraction and waits for a slot choice.
func (s *Sessions) SetPreview(chatID int64, rec *extract.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = &session{state: StatePreviewing, pending: rec, touched: time.Now()}
}

// AwaitManualBalance remembers the chosen slot and waits for the user to type
// a balance; only valid from the previewing state.
func (s *Sessions) AwaitManualBalance(chatID int64, slot int) *extract.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(chatID)
	if sess == nil || sess.state != StatePreviewing {
		return nil
	}
	sess.state = StateAwaitingManualBalance
	sess.slot = slot
	sess.touched = time.Now()
	return sess.pending
}

// Pending returns the extracted-but-unsaved record and the remembered slot.
func (s *Sessions) Pending(chatID int64) (*extract.Record, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(chatID)
	if sess == nil {
		return nil, 0
	}
	sess.touched = time.Now()
	return sess.pending, sess.slot
}

// Reset discards the chat's session, returning it to idle.
func (s *Sessions) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
