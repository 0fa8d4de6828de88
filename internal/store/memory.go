package store

import (
	"fmt"
	"sync"

	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/model"
)

// Memory is a mutex-guarded in-memory implementation of the engine's store
// contracts. Reads and writes hand out copies so callers never share state
// with the store.
type Memory struct {
	mu       sync.RWMutex
	lectures map[string]*model.Lecture
	sessions map[string]*model.Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		lectures: make(map[string]*model.Lecture),
		sessions: make(map[string]*model.Session),
	}
}

// PutLecture stores a lecture and its catalog.
func (m *Memory) PutLecture(lec *model.Lecture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lectures[lec.ID] = copyLecture(lec)
}

// Lecture returns a lecture by id.
func (m *Memory) Lecture(id string) (*model.Lecture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lec, ok := m.lectures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrLectureNotFound, id)
	}
	return copyLecture(lec), nil
}

// Session returns a session by id.
func (m *Memory) Session(id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrSessionNotFound, id)
	}
	return copySession(sess), nil
}

// SaveSession stores a session snapshot.
func (m *Memory) SaveSession(sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = copySession(sess)
	return nil
}

func copyLecture(lec *model.Lecture) *model.Lecture {
	cp := *lec
	cp.Questions = append([]model.Question(nil), lec.Questions...)
	return &cp
}

func copySession(sess *model.Session) *model.Session {
	cp := *sess
	cp.Answers = append([]model.AnswerRecord(nil), sess.Answers...)
	cp.ProctorFlags = append([]model.ProctorFlag(nil), sess.ProctorFlags...)
	if sess.CompletedAt != nil {
		t := *sess.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
