package sessions

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/queue"
)

type memStore struct {
	mu         sync.Mutex
	next       int64
	rows       map[int64]models.Session
	recordings map[int64][]int64 // session id -> source id of each recording
	sources    map[int64]models.RecordingSource
}

func newMemStore() *memStore {
	return &memStore{
		rows:       map[int64]models.Session{},
		recordings: map[int64][]int64{},
		sources:    map[int64]models.RecordingSource{},
	}
}

func (m *memStore) addRecording(sessionID int64, src models.RecordingSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[src.ID] = src
	m.recordings[sessionID] = append(m.recordings[sessionID], src.ID)
}

func (m *memStore) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = m.next
	m.rows[s.ID] = *s
	return nil
}

func (m *memStore) Update(_ context.Context, s *models.Session) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[s.ID]
	if !ok {
		return false, nil
	}
	token := cur.Token
	cur = *s
	cur.Token = token
	m.rows[s.ID] = cur
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id int64) ([]models.RecordingSource, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil, false, nil
	}
	removed := m.recordings[id]
	delete(m.recordings, id)
	delete(m.rows, id)

	var orphans []models.RecordingSource
	seen := map[int64]bool{}
	for _, sourceID := range removed {
		if seen[sourceID] || m.sourceInUse(sourceID) {
			continue
		}
		seen[sourceID] = true
		orphans = append(orphans, m.sources[sourceID])
	}
	return orphans, true, nil
}

func (m *memStore) sourceInUse(sourceID int64) bool {
	for _, ids := range m.recordings {
		for _, id := range ids {
			if id == sourceID {
				return true
			}
		}
	}
	return false
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.Token == token {
			s := s
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListByCourse(_ context.Context, courseID int64) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Session
	for id := int64(1); id <= m.next; id++ {
		if s, ok := m.rows[id]; ok && s.CourseID == courseID {
			list = append(list, s)
		}
	}
	return list, nil
}

type countingCalendar struct {
	synced []int64
	err    error
}

func (c *countingCalendar) Sync(_ context.Context, s *models.Session) error {
	c.synced = append(c.synced, s.ID)
	return c.err
}

type purgeLog struct {
	queued []queue.AssetDeletePayload
	err    error
}

func (p *purgeLog) EnqueueAssetDelete(_ context.Context, payload queue.AssetDeletePayload) error {
	if p.err != nil {
		return p.err
	}
	p.queued = append(p.queued, payload)
	return nil
}

type visitLog struct {
	entered []int64
}

func (v *visitLog) Enter(_ context.Context, sessionID, _ int64, _ uuid.UUID) error {
	v.entered = append(v.entered, sessionID)
	return nil
}

type staticAccounts bool

func (a staticAccounts) HasInUse(context.Context) (bool, error) { return bool(a), nil }
