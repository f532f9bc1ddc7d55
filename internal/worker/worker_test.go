package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liveclass/pkg/queue"
)

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	if len(f.jobs) > 0 {
		j := f.jobs[0]
		f.jobs = f.jobs[1:]
		f.mu.Unlock()
		return j, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
	case <-time.After(time.Millisecond):
	}
	return nil, ctx.Err()
}

func (f *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

type fakeReplayer struct {
	mu    sync.Mutex
	fail  int
	calls []queue.RecordingCommitPayload
}

func (f *fakeReplayer) Replay(_ context.Context, p queue.RecordingCommitPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.fail > 0 {
		f.fail--
		return errors.New("db unavailable")
	}
	return nil
}

func commitJob(t *testing.T, sessionID uuid.UUID) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.RecordingCommitPayload{CourseID: uuid.New(), SessionID: sessionID, Title: "Live Session"})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeRecordingCommit, Payload: body}
}

func TestProcess(t *testing.T) {
	rep := &fakeReplayer{}
	p := NewCommitProcessor(&fakeQueue{}, rep, time.Millisecond, nil)
	session := uuid.New()

	require.NoError(t, p.Process(context.Background(), commitJob(t, session)))
	require.Len(t, rep.calls, 1)
	assert.Equal(t, session, rep.calls[0].SessionID)

	err := p.Process(context.Background(), &queue.Job{Type: "other"})
	assert.ErrorContains(t, err, "unknown job type")

	err = p.Process(context.Background(), &queue.Job{Type: queue.JobTypeRecordingCommit, Payload: json.RawMessage(`"x"`)})
	assert.ErrorContains(t, err, "unmarshal payload")
}

func TestRun_RetriesFailedJobs(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{commitJob(t, uuid.New())}}
	rep := &fakeReplayer{fail: 1}
	p := NewCommitProcessor(q, rep, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.retried) == 1
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, q.retried[0].Attempt)
}
