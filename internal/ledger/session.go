package ledger

import "sync"

// Session is the proof of a completed OTP login. It is owned by the caller
// and passed to every balance-affecting operation; there is no process-wide
// current user.
type Session struct {
	mu     sync.Mutex
	phone  string
	active bool
}

func newSession(phone string) *Session {
	return &Session{phone: phone, active: true}
}

// Phone returns the phone number the session was issued for.
func (s *Session) Phone() string {
	return s.phone
}

// Active reports whether the session is still usable.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// End invalidates the session. It has no other side effects and is safe to
// call more than once.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}
