// Package replication runs the background job loop that copies objects
// from their source backend to a replication target: claim → resolve →
// stream → mark complete/failed.
package replication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/store"
)

// Worker polls the store for pending replication jobs and dispatches them
// across a bounded pool of goroutines.
type Worker struct {
	store          store.Store
	registry       backend.ClientResolver
	pollInterval   time.Duration
	jobTimeout     time.Duration
	maxObjectBytes int64
	concurrency    int
}

// Config parameterizes a Worker; zero values fall back to the same
// defaults internal/config documents.
type Config struct {
	PollInterval   time.Duration
	JobTimeout     time.Duration
	MaxObjectBytes int64
	Concurrency    int
}

// New builds a Worker. registry is a backend.ClientResolver so tests can
// drive copyObject against fakes instead of a real S3-compatible endpoint.
func New(s store.Store, registry backend.ClientResolver, cfg Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		store:          s,
		registry:       registry,
		pollInterval:   pollInterval,
		jobTimeout:     cfg.JobTimeout,
		maxObjectBytes: cfg.MaxObjectBytes,
		concurrency:    concurrency,
	}
}

// Run polls for pending jobs until ctx is cancelled. Each poll claims a
// batch and fans it out across a bounded pool of goroutines, a
// WaitGroup/channel fan-out capped by a semaphore so a large batch never
// spawns unbounded concurrent backend requests.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		claimed := w.runOnce(ctx)
		if claimed == 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// runOnce claims and processes one batch, returning the number of jobs
// claimed so Run can decide whether to sleep.
func (w *Worker) runOnce(ctx context.Context) int {
	jobs, err := w.store.ClaimPendingJobs(ctx, w.concurrency)
	if err != nil {
		log.Printf("replication: claim pending jobs: %v", err)
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job store.PendingJob) {
			defer wg.Done()
			defer func() { <-sem }()
			w.handle(ctx, job)
		}(job)
	}
	wg.Wait()
	return len(jobs)
}

// handle resolves the target mapping, streams the object, and records the
// outcome per spec.md §4.H's state machine.
func (w *Worker) handle(ctx context.Context, job store.PendingJob) {
	jobCtx := ctx
	var cancel context.CancelFunc
	if w.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	if err := w.copyObject(jobCtx, job); err != nil {
		log.Printf("replication: job %d failed: %v", job.ID, err)
		if markErr := w.store.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
			log.Printf("replication: mark job %d failed: %v", job.ID, markErr)
		}
		return
	}
	if err := w.store.MarkJobCompleted(ctx, job.ID); err != nil {
		log.Printf("replication: mark job %d completed: %v", job.ID, err)
	}
}

func (w *Worker) copyObject(ctx context.Context, job store.PendingJob) error {
	targetMapping, err := w.store.FetchBucketMappingForBackend(ctx, job.CustomerID, job.LogicalName, job.TargetBackend)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			return fmt.Errorf("target bucket mapping (%s, %s, %s) not found", job.CustomerID, job.LogicalName, job.TargetBackend)
		}
		return fmt.Errorf("resolve target mapping: %w", err)
	}

	sourceClient, err := w.registry.Client(ctx, job.SourceBackendID)
	if err != nil {
		return fmt.Errorf("source backend client: %w", err)
	}
	targetClient, err := w.registry.Client(ctx, job.TargetBackend)
	if err != nil {
		return fmt.Errorf("target backend client: %w", err)
	}

	getOut, err := sourceClient.GetObject(ctx, job.BackendBucket, job.ObjectKey)
	if err != nil {
		return fmt.Errorf("get source object: %w", err)
	}
	defer getOut.Body.Close()

	body, err := readBounded(getOut.Body, w.maxObjectBytes)
	if err != nil {
		return err
	}

	if err := targetClient.PutObject(ctx, targetMapping.BackendBucket, job.ObjectKey, bytes.NewReader(body), getOut.ContentType); err != nil {
		return fmt.Errorf("put target object: %w", err)
	}
	return nil
}

// readBounded reads body fully, failing with a descriptive error instead
// of silently truncating if it exceeds maxBytes. A maxBytes <= 0 disables
// the bound.
func readBounded(body io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(body)
	}
	limited := io.LimitReader(body, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("object exceeds replication size cap of %d bytes", maxBytes)
	}
	return data, nil
}
