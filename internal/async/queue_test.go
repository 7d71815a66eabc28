package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/pipeline"
)

type recordingProcessor struct {
	mu      sync.Mutex
	seen    []pipeline.Request
	started chan struct{}
	release chan struct{}
	fail    map[string]bool
}

func (p *recordingProcessor) ProcessFile(ctx context.Context, req pipeline.Request) (*entity.BillDocument, error) {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	p.seen = append(p.seen, req)
	p.mu.Unlock()
	if p.fail[req.Path] {
		return nil, errors.New("ocr failed")
	}
	doc := entity.NewBillDocument()
	doc.UploadID = req.UploadID
	return doc, nil
}

func TestQueueProcessesEveryJobBeforeShutdownReturns(t *testing.T) {
	proc := &recordingProcessor{fail: map[string]bool{"b.pdf": true}}
	var mu sync.Mutex
	results := map[string]error{}
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(8), WithOnDone(func(job Job, _ *entity.BillDocument, err error) {
		mu.Lock()
		results[job.Path] = err
		mu.Unlock()
	}))

	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p, UploadID: "id-" + p}))
	}
	q.Shutdown(context.Background())

	assert.Len(t, proc.seen, 4)
	require.Len(t, results, 4)
	assert.NoError(t, results["a.pdf"])
	assert.Error(t, results["b.pdf"])
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, nil, WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.pdf"})
	assert.ErrorIs(t, err, common.ErrQueueClosed)
}

func TestEnqueueAppliesBackpressure(t *testing.T) {
	proc := &recordingProcessor{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1), WithProcessTimeout(time.Minute))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.pdf"}))
	<-proc.started // worker holds job 1
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.release)
	q.Shutdown(context.Background())
	assert.Len(t, proc.seen, 2)
}

func TestShutdownHonoursContext(t *testing.T) {
	proc := &recordingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
	<-proc.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	q.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)
	close(proc.release)
}

func TestWaitingEnqueueDoesNotBlockOtherCallers(t *testing.T) {
	proc := &recordingProcessor{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "held.pdf"}))
	<-proc.started
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "buffered.pdf"}))

	firstErr := make(chan error, 1)
	go func() { firstErr <- q.Enqueue(context.Background(), Job{Path: "waiting.pdf"}) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := q.Enqueue(ctx, Job{Path: "deadline.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	close(proc.release)
	q.Shutdown(context.Background())
	err = <-firstErr
	if err != nil {
		assert.ErrorIs(t, err, common.ErrQueueClosed)
	}
}

func TestShutdownReleasesWaitingEnqueue(t *testing.T) {
	proc := &recordingProcessor{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "held.pdf"}))
	<-proc.started
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "buffered.pdf"}))

	waiting := make(chan error, 1)
	go func() { waiting <- q.Enqueue(context.Background(), Job{Path: "waiting.pdf"}) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	q.Shutdown(ctx)

	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, common.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("Enqueue still blocked after Shutdown")
	}
	close(proc.release)
}
