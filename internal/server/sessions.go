package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

// session is one browser tab's workflow and comparison pane. Sessions live in
// memory only.
type session struct {
	id      string
	created time.Time
	seq     uint64
	ctrl    *workflow.Controller

	// mu guards view; the controller has its own lock.
	mu   sync.Mutex
	view *viewer.Viewer
}

// present syncs the viewer with the controller's current pair and returns
// the state it synced against.
func (s *session) present() workflow.State {
	st := s.ctrl.State()
	pair := viewer.Pair{}
	if st.Source != nil {
		pair.OriginalID = st.Source.ID()
	}
	if st.Edited != nil {
		pair.EditedID = st.Edited.ID()
	}
	s.mu.Lock()
	s.view.Present(pair)
	s.mu.Unlock()
	return st
}

// sessionStore is a concurrency-safe map of sessions keyed by ID.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	max      int
	seq      uint64
}

func newSessionStore(max int) *sessionStore {
	return &sessionStore{sessions: make(map[string]*session), max: max}
}

// create registers a new session around ctrl. When the store is full the
// oldest session is evicted.
func (st *sessionStore) create(ctrl *workflow.Controller, bounds viewer.Bounds) *session {
	s := &session{
		id:      uuid.NewString(),
		created: time.Now(),
		ctrl:    ctrl,
		view:    viewer.New(bounds),
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.seq++
	s.seq = st.seq
	if st.max > 0 && len(st.sessions) >= st.max {
		st.evictOldestLocked()
	}
	st.sessions[s.id] = s
	return s
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *sessionStore) evictOldestLocked() {
	var oldest *session
	for _, s := range st.sessions {
		if oldest == nil || s.seq < oldest.seq {
			oldest = s
		}
	}
	if oldest != nil {
		delete(st.sessions, oldest.id)
	}
}
