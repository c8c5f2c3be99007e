package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/internal/recordings"
	"github.com/coursemeet/backend/pkg/mailer"
	"github.com/coursemeet/backend/pkg/queue"
)

type fakePurger struct {
	purged []int64
	err    error
}

func (f *fakePurger) PurgeNow(_ context.Context, sourceID int64) error {
	if f.err != nil {
		return f.err
	}
	f.purged = append(f.purged, sourceID)
	return nil
}

type fakeMailer struct {
	enabled bool
	err     error
	sent    []mailer.Message
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type memLogs struct {
	logs []models.EmailLog
}

func (m *memLogs) Create(_ context.Context, el *models.EmailLog) error {
	el.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *el)
	return nil
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeQueue) Dequeue(_ context.Context) (*queue.Job, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		time.Sleep(time.Millisecond)
		return nil, "", nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, queue.QueueAssets, nil
}

func (f *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeQueue) snapshot() (pending, retried int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs), len(f.retried)
}

func notificationJob(t *testing.T) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeNotification, queue.NotificationPayload{
		Name:           models.EmailTypeCallPrivateSession,
		UserID:         uuid.New(),
		RecipientEmail: "c@example.com",
		Subject:        "Grace is calling you",
		BodyHTML:       "<p>join</p>",
	})
	require.NoError(t, err)
	return job
}

func TestProcess_AssetDelete(t *testing.T) {
	purger := &fakePurger{}
	p := NewProcessor(purger, nil, nil, nil, nil)
	job, err := queue.NewJob(queue.JobTypeAssetDelete, queue.AssetDeletePayload{SourceID: 9, Link: "vid", Provider: "youtube"})
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), job))
	assert.Equal(t, []int64{9}, purger.purged)
}

func TestProcess_AssetDeleteNotDeletableIsDropped(t *testing.T) {
	p := NewProcessor(&fakePurger{err: recordings.ErrNotDeletable}, nil, nil, nil, nil)
	job, err := queue.NewJob(queue.JobTypeAssetDelete, queue.AssetDeletePayload{SourceID: 9})
	require.NoError(t, err)
	assert.NoError(t, p.Process(context.Background(), job))
}

func TestProcess_AssetDeleteFailureIsRetryable(t *testing.T) {
	p := NewProcessor(&fakePurger{err: errors.New("youtube 500")}, nil, nil, nil, nil)
	job, err := queue.NewJob(queue.JobTypeAssetDelete, queue.AssetDeletePayload{SourceID: 9})
	require.NoError(t, err)
	assert.Error(t, p.Process(context.Background(), job))
}

func TestProcess_NotificationSent(t *testing.T) {
	m, logs := &fakeMailer{enabled: true}, &memLogs{}
	p := NewProcessor(nil, m, logs, nil, nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Process(context.Background(), notificationJob(t)))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "c@example.com", m.sent[0].To)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.EmailLogStatusSent, logs.logs[0].Status)
	require.NotNil(t, logs.logs[0].SentAt)
	assert.Equal(t, now, *logs.logs[0].SentAt)
}

func TestProcess_NotificationFailureLogged(t *testing.T) {
	m, logs := &fakeMailer{enabled: true, err: errors.New("550")}, &memLogs{}
	p := NewProcessor(nil, m, logs, nil, nil)

	assert.Error(t, p.Process(context.Background(), notificationJob(t)))
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.EmailLogStatusFailed, logs.logs[0].Status)
	assert.Equal(t, "550", logs.logs[0].ErrorMessage)
}

func TestProcess_NotificationSkippedWithoutMailer(t *testing.T) {
	logs := &memLogs{}
	p := NewProcessor(nil, &fakeMailer{}, logs, nil, nil)

	require.NoError(t, p.Process(context.Background(), notificationJob(t)))
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.EmailLogStatusSkipped, logs.logs[0].Status)
}

func TestProcess_UnknownType(t *testing.T) {
	p := NewProcessor(nil, nil, nil, nil, nil)
	assert.Error(t, p.Process(context.Background(), &queue.Job{Type: "bogus"}))
}

func TestRun_RetriesFailedJobs(t *testing.T) {
	q := &fakeQueue{}
	ok, err := queue.NewJob(queue.JobTypeAssetDelete, queue.AssetDeletePayload{SourceID: 1})
	require.NoError(t, err)
	q.jobs = []*queue.Job{ok, {ID: "bad", Type: "bogus"}}

	p := NewProcessor(&fakePurger{}, nil, nil, q, nil)
	p.backoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		pending, retried := q.snapshot()
		return pending == 0 && retried >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
