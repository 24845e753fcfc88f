package assistant

import "aura/internal/store"

// Session pins the conversation id that receives logged turns. One is
// created every time the loop starts; ending one is a no-op in the
// storage contract beyond dropping the reference.
type Session struct {
	store *store.Store
	id    int
}

func NewSession(st *store.Store) *Session {
	return &Session{store: st, id: st.StartConversation()}
}

func (s *Session) ID() int { return s.id }

// Log appends one turn to this session's conversation. Persistence is
// best-effort; a failed write never interrupts the loop.
func (s *Session) Log(speaker, text string) {
	_ = s.store.LogMessage(speaker, text, s.id)
}

func (s *Session) End() {
	s.store.EndConversation(s.id)
}
