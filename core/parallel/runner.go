// Package parallel runs evaluation tasks across goroutines and across
// processes that share one filesystem.
//
// Every task carries a key (usually the path of the file it produces). A
// status file marks keys that completed, and an exclusive lock file keeps two
// workers from running the same key at once. Tasks whose lock is held are
// retried in later passes until no deferred work remains.
package parallel

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// Default runner settings.
const (
	DefaultLockTimeout  = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
)

// Task is one idempotent unit of work.
type Task struct {
	Key         string
	Description string
	// Run returns true on success. Failures are logged by the task itself.
	Run func(ctx context.Context) bool
}

// Summary tallies the outcome of Run.
type Summary struct {
	Done    int
	Skipped int
	Failed  int
	// FailedKeys lists the keys of failed tasks in sorted order.
	FailedKeys []string
}

// OK reports whether no task failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Add merges o into s.
func (s *Summary) Add(o Summary) {
	s.Done += o.Done
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.FailedKeys = append(s.FailedKeys, o.FailedKeys...)
	sort.Strings(s.FailedKeys)
}

// Runner executes tasks with bounded concurrency. LockDir and StatusDir may
// be empty, in which case coordination is in-process only.
type Runner struct {
	Workers      int
	LockDir      string
	StatusDir    string
	LockTimeout  time.Duration
	PollInterval time.Duration
	Logger       log.Logger
	Metrics      *Metrics

	// WorkerID identifies this process in lock files; generated when empty.
	WorkerID string
}

// Run executes tasks until each one is done, skipped, or failed, or ctx is
// cancelled. A task that fails is not retried within the same call.
func (r *Runner) Run(ctx context.Context, tasks []Task) (Summary, error) {
	r.init()
	store := &fileStore{
		lockDir:     r.LockDir,
		statusDir:   r.StatusDir,
		lockTimeout: r.LockTimeout,
		owner:       r.WorkerID,
	}
	logger := r.Logger.With(log.ComponentKey, "runner", log.WorkerIDKey, r.WorkerID)

	var (
		mu      sync.Mutex
		summary Summary
	)
	record := func(key, status string, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		switch status {
		case StatusDone:
			summary.Done++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
			summary.FailedKeys = append(summary.FailedKeys, key)
		}
		r.Metrics.observe(status, d)
	}

	pending := dedupe(tasks)
	logger.Debug("Starting task run", "tasks", len(pending), log.WorkersKey, r.Workers)

	for pass := 1; len(pending) > 0; pass++ {
		var deferred []Task
		g := new(errgroup.Group)
		g.SetLimit(r.Workers)

		for _, t := range pending {
			if ctx.Err() != nil {
				break
			}
			if store.isDone(t.Key) {
				record(t.Key, StatusSkipped, 0)
				continue
			}
			g.Go(func() error {
				status, d := r.execute(ctx, store, logger, t)
				if status == StatusDeferred {
					mu.Lock()
					deferred = append(deferred, t)
					mu.Unlock()
				}
				record(t.Key, status, d)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return summary.sorted(), errors.Wrap(err, "task run interrupted")
		}
		if len(deferred) == 0 {
			break
		}
		logger.Debug("Waiting for tasks locked by other workers", "deferred", len(deferred), "pass", pass)
		select {
		case <-ctx.Done():
			return summary.sorted(), errors.Wrap(ctx.Err(), "task run interrupted")
		case <-time.After(r.PollInterval):
		}
		pending = deferred
	}

	logger.Info("Task run finished",
		"done", summary.Done, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary.sorted(), nil
}

// execute runs one task under its lock and returns the resulting status.
func (r *Runner) execute(ctx context.Context, store *fileStore, logger log.Logger, t Task) (string, time.Duration) {
	tl := logger.With(log.TaskKey, t.Key)

	release, ok, err := store.acquire(t.Key)
	if err != nil {
		tl.Error("Could not acquire task lock", "error", err)
		return StatusFailed, 0
	}
	if !ok {
		tl.Debug("Task is locked by another worker", log.TaskStatusKey, StatusDeferred)
		return StatusDeferred, 0
	}
	defer release()

	// Another worker may have finished the task while we waited for the lock.
	if store.isDone(t.Key) {
		return StatusSkipped, 0
	}

	start := time.Now()
	var succeeded bool
	err = errors.SafeExecute(t.Description, func() error {
		succeeded = t.Run(ctx)
		return nil
	})
	d := time.Since(start)
	if err != nil {
		tl.Error("Task panicked", "error", err, log.DurationMsKey, d.Milliseconds())
		return StatusFailed, d
	}
	if !succeeded {
		tl.Warn("Task failed", "description", t.Description, log.DurationMsKey, d.Milliseconds())
		return StatusFailed, d
	}
	if err := store.markDone(t.Key); err != nil {
		tl.Error("Could not record task completion", "error", err)
		return StatusFailed, d
	}
	tl.Debug("Task done", "description", t.Description, log.DurationMsKey, d.Milliseconds())
	return StatusDone, d
}

func (s Summary) sorted() Summary {
	sort.Strings(s.FailedKeys)
	return s
}

// dedupe keeps the first task for each key.
func dedupe(tasks []Task) []Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.Key]; ok {
			continue
		}
		seen[t.Key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (r *Runner) init() {
	if r.Workers < 1 {
		r.Workers = runtime.NumCPU()
	}
	if r.LockTimeout == 0 {
		r.LockTimeout = DefaultLockTimeout
	}
	if r.PollInterval <= 0 {
		r.PollInterval = DefaultPollInterval
	}
	if r.Logger == nil {
		r.Logger = log.Nop()
	}
	if r.WorkerID == "" {
		r.WorkerID = uuid.NewString()
	}
}
