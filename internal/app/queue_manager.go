package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/resolver"
)

var (
	// ErrQueueFull is returned when the pending queue has no room left
	ErrQueueFull = errors.New("download queue is full")
	// ErrQueueStopped is returned when jobs are added to a stopped queue
	ErrQueueStopped = errors.New("download queue is not running")
)

// JobState is the lifecycle state of a queued download
type JobState string

const (
	JobQueued   JobState = "queued"
	JobRunning  JobState = "running"
	JobFinished JobState = "finished"
)

// Job is one download submitted to the server queue. One job may save
// several clips when the URL is a playlist.
type Job struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Protocols  []string   `json:"protocols,omitempty"`
	State      JobState   `json:"state"`
	Result     string     `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	request Request
	cancel  context.CancelFunc
}

// QueueManager processes downloads submitted through the HTTP API one at
// a time, in submission order
type QueueManager struct {
	downloadMgr *DownloadManager
	logger      *zap.Logger
	mu          sync.RWMutex
	running     bool
	jobs        map[string]*Job
	order       []string
	pending     chan *Job
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager with room for size pending jobs
func NewQueueManager(downloadMgr *DownloadManager, size int, logger *zap.Logger) *QueueManager {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueManager{
		downloadMgr: downloadMgr,
		logger:      logger,
		jobs:        make(map[string]*Job),
		pending:     make(chan *Job, size),
		stopChan:    make(chan struct{}),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	qm.logger.Info("Download queue started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor. A running download is interrupted and
// ends up incomplete.
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	for _, job := range qm.jobs {
		if job.cancel != nil {
			job.cancel()
		}
	}
	qm.mu.Unlock()

	close(qm.stopChan)
	qm.workerWg.Wait()

	qm.logger.Info("Download queue stopped")
	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddDownload queues a download of a page URL
func (qm *QueueManager) AddDownload(req Request) (Job, error) {
	if resolver.Classify(req.URL) == resolver.KindUnsupported {
		return Job{}, fmt.Errorf("%w: %s", resolver.ErrUnsupportedURL, req.URL)
	}
	req.Operation = domain.OperationDownload

	job := &Job{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Protocols: req.Protocols,
		State:     JobQueued,
		CreatedAt: time.Now(),
		request:   req,
	}

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if !qm.running {
		return Job{}, ErrQueueStopped
	}

	select {
	case qm.pending <- job:
	default:
		return Job{}, ErrQueueFull
	}

	qm.jobs[job.ID] = job
	qm.order = append(qm.order, job.ID)

	qm.logger.Info("Download queued",
		zap.String("id", job.ID),
		zap.String("url", job.URL))

	return *job, nil
}

// GetJob returns a snapshot of a job
func (qm *QueueManager) GetJob(id string) (Job, bool) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()

	job, ok := qm.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of every job, oldest first
func (qm *QueueManager) ListJobs() []Job {
	qm.mu.RLock()
	defer qm.mu.RUnlock()

	jobs := make([]Job, 0, len(qm.order))
	for _, id := range qm.order {
		jobs = append(jobs, *qm.jobs[id])
	}
	return jobs
}

// processQueue runs the queued jobs until stopped
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			qm.logger.Info("Queue processor stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logger.Info("Queue processor stopped", zap.String("reason", "stop_signal"))
			return
		case job := <-qm.pending:
			qm.runJob(ctx, job)
		}
	}
}

func (qm *QueueManager) runJob(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return
	}
	now := time.Now()
	job.State = JobRunning
	job.StartedAt = &now
	job.cancel = cancel
	qm.mu.Unlock()

	qm.logger.Info("Download started", zap.String("id", job.ID), zap.String("url", job.URL))

	result := qm.downloadMgr.Run(jobCtx, job.request)

	qm.mu.Lock()
	finished := time.Now()
	job.State = JobFinished
	job.Result = result.String()
	job.FinishedAt = &finished
	job.cancel = nil
	qm.mu.Unlock()

	qm.logger.Info("Download finished",
		zap.String("id", job.ID),
		zap.String("result", result.String()))
}
