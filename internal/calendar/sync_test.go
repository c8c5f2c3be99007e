package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/models"
)

type memStore struct {
	events map[string]models.CalendarEvent
}

func (m *memStore) Upsert(_ context.Context, ev *models.CalendarEvent) error {
	m.events[ev.EventType] = *ev
	return nil
}

func (m *memStore) Delete(_ context.Context, _ int64, eventType string) error {
	delete(m.events, eventType)
	return nil
}

func TestSync_OpenAndClose(t *testing.T) {
	store := &memStore{events: map[string]models.CalendarEvent{}}
	s := NewSyncer(store, nil)
	sess := &models.Session{ID: 4, CourseID: 2, Name: "Lab", TimeOpen: 1700000000, TimeClose: 1700003600}

	require.NoError(t, s.Sync(context.Background(), sess))
	require.Len(t, store.events, 2)
	assert.Equal(t, "Lab opens", store.events[models.EventTypeOpen].Name)
	assert.Equal(t, time.Unix(1700003600, 0).UTC(), store.events[models.EventTypeClose].TimeStart)

	sess.TimeClose = 0
	require.NoError(t, s.Sync(context.Background(), sess))
	assert.Len(t, store.events, 1)
	assert.Contains(t, store.events, models.EventTypeOpen)
}
