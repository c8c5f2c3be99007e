package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/queue"
)

func newTestService(now time.Time) (*Service, *memStore, *countingCalendar) {
	svc, store, cal, _ := newPurgingService(now)
	return svc, store, cal
}

func newPurgingService(now time.Time) (*Service, *memStore, *countingCalendar, *purgeLog) {
	store := newMemStore()
	cal := &countingCalendar{}
	purges := &purgeLog{}
	svc := NewService(store, cal, purges, nil)
	svc.now = func() time.Time { return now }
	return svc, store, cal, purges
}

func TestCreate_GeneratesTokenOnce(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	svc, store, cal := newTestService(now)
	ctx := context.Background()

	id, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Room", ValidityTime: now.Unix() - 1})
	require.NoError(t, err)

	created, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, created.Token, 64)
	assert.Equal(t, now.Unix(), created.TimeCreated)
	assert.True(t, created.LinkExpired)
	assert.Equal(t, []int64{id}, cal.synced)

	ok, err := svc.Update(ctx, &models.Session{ID: id, CourseID: 1, Name: "Renamed", ValidityTime: now.Unix() + 3600, Token: "other"})
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, created.Token, updated.Token)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.LinkExpired)
	assert.Equal(t, now.Unix(), updated.TimeModified)
}

func TestNewToken_Unique(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9a-f]{64}$`, a)
}

func TestUpdateAndDelete_Missing(t *testing.T) {
	svc, _, cal := newTestService(time.Now())
	ctx := context.Background()

	ok, err := svc.Update(ctx, &models.Session{ID: 42, Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cal.synced)

	ok, err = svc.Delete(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_CascadesRecordings(t *testing.T) {
	svc, store, _ := newTestService(time.Now())
	ctx := context.Background()
	id, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Room"})
	require.NoError(t, err)
	store.addRecording(id, models.RecordingSource{ID: 1, Link: "a", Provider: "youtube"})
	store.addRecording(id, models.RecordingSource{ID: 2, Link: "b", Provider: "youtube"})

	ok, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, store.recordings[id])
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_QueuesOrphanedAssets(t *testing.T) {
	svc, store, _, purges := newPurgingService(time.Now())
	ctx := context.Background()
	doomed, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Doomed"})
	require.NoError(t, err)
	kept, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Kept"})
	require.NoError(t, err)

	own := models.RecordingSource{ID: 10, Link: "vid-own", Provider: "youtube"}
	shared := models.RecordingSource{ID: 11, Link: "recordings/1/x.mp4", Provider: "s3"}
	store.addRecording(doomed, own)
	store.addRecording(doomed, own)
	store.addRecording(doomed, shared)
	store.addRecording(kept, shared)

	ok, err := svc.Delete(ctx, doomed)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []queue.AssetDeletePayload{{SourceID: 10, Link: "vid-own", Provider: "youtube"}}, purges.queued)

	purges.queued = nil
	ok, err = svc.Delete(ctx, kept)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []queue.AssetDeletePayload{{SourceID: 11, Link: "recordings/1/x.mp4", Provider: "s3"}}, purges.queued)
}

func TestDelete_QueueFailureKeepsDeletion(t *testing.T) {
	svc, store, _, purges := newPurgingService(time.Now())
	purges.err = errors.New("redis down")
	ctx := context.Background()
	id, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Room"})
	require.NoError(t, err)
	store.addRecording(id, models.RecordingSource{ID: 3, Link: "v", Provider: "youtube"})

	ok, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_CalendarFailureKeepsSession(t *testing.T) {
	svc, store, cal := newTestService(time.Now())
	cal.err = errors.New("calendar unavailable")
	ctx := context.Background()

	id, err := svc.Create(ctx, &models.Session{CourseID: 1, Name: "Room"})
	require.NoError(t, err)
	require.NotZero(t, id)
	_, err = store.Get(ctx, id)
	require.NoError(t, err)

	ok, err := svc.Update(ctx, &models.Session{ID: id, CourseID: 1, Name: "Renamed"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{id, id}, cal.synced)
}

func TestFindByCourseAndRefresh(t *testing.T) {
	svc, _, cal := newTestService(time.Now())
	ctx := context.Background()
	for _, course := range []int64{1, 1, 2} {
		_, err := svc.Create(ctx, &models.Session{CourseID: course, Name: "Room"})
		require.NoError(t, err)
	}

	list, err := svc.FindByCourse(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	cal.synced = nil
	n, err := svc.RefreshEvents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, cal.synced)
}

func TestInviteCode(t *testing.T) {
	s := &models.Session{ID: 7, TimeCreated: 1000}
	assert.Equal(t, int64(1007), InviteCode(s))
	assert.True(t, IsOriginal("1007", s))
	assert.False(t, IsOriginal("1008", s))
	assert.False(t, IsOriginal("abc", s))
}

func TestExpiryMessage(t *testing.T) {
	s := &models.Session{ValidityTime: 0}
	assert.Equal(t, "invitations not activated", ExpiryMessage(s, true))

	s.ValidityTime = 1_700_000_000
	assert.Equal(t, "invitations not activated", ExpiryMessage(s, false))
	assert.Contains(t, ExpiryMessage(s, true), "link expired on")
}

func TestCheckGuestAccess(t *testing.T) {
	now := time.Unix(2000, 0)
	s := &models.Session{ValidityTime: 3000}
	assert.NoError(t, CheckGuestAccess(s, true, now))
	assert.ErrorIs(t, CheckGuestAccess(s, false, now), ErrLinkExpired)

	s.ValidityTime = 1000
	assert.ErrorIs(t, CheckGuestAccess(s, true, now), ErrLinkExpired)
}
