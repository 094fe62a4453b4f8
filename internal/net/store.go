package net

// SessionStore indexes the sessions known to the game loop. Accessed only
// from the game loop goroutine, no locks.
type SessionStore struct {
	byID  map[uint64]*Session
	order []*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	if _, ok := st.byID[s.ID]; ok {
		return
	}
	st.byID[s.ID] = s
	st.order = append(st.order, s)
}

func (st *SessionStore) Remove(id uint64) {
	if _, ok := st.byID[id]; !ok {
		return
	}
	delete(st.byID, id)
	for i, s := range st.order {
		if s.ID == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *SessionStore) Get(id uint64) *Session { return st.byID[id] }

func (st *SessionStore) Count() int { return len(st.order) }

// ForEach visits sessions in the order they were added.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.order {
		fn(s)
	}
}
